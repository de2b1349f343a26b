// Package router mounts the ledger API under /api/<version>.
package router

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// Registrar mounts its routes on a gin group
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and mounts them under one versioned prefix
type Router struct {
	engine     *gin.Engine
	version    string
	registrars []Registrar
	middleware []gin.HandlerFunc
}

// Option configures a Router
type Option func(*Router)

// WithAPIVersion sets the version segment of the prefix. Default "v1".
func WithAPIVersion(version string) Option {
	return func(r *Router) {
		r.version = version
	}
}

// NewRouter creates a Router for engine
func NewRouter(engine *gin.Engine, opts ...Option) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrars for Setup
func (r *Router) Register(registrars ...Registrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Use adds middleware run before every API route
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, withoutNil(middleware)...)
	return r
}

// Setup mounts everything registered and returns the API group
func (r *Router) Setup() *gin.RouterGroup {
	api := r.engine.Group("/api/"+r.version, r.middleware...)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
	return api
}

// Resource is one API resource such as "/pagos": a prefix, the middleware
// every route below it runs, its routes and nested resources. nil handlers
// are dropped, so optional middleware can be passed unconditionally.
type Resource struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*Resource
}

type route struct {
	method string
	path   string
	chain  []gin.HandlerFunc
}

// NewResource creates a resource mounted at prefix
func NewResource(prefix string) *Resource {
	return &Resource{prefix: prefix}
}

// Prefix returns the path the resource is mounted at
func (res *Resource) Prefix() string {
	return res.prefix
}

// Use adds middleware to every route of res and its nested resources
func (res *Resource) Use(middleware ...gin.HandlerFunc) *Resource {
	res.middleware = append(res.middleware, withoutNil(middleware)...)
	return res
}

// Handle adds a route. handlers run in order after the resource middleware.
func (res *Resource) Handle(method, path string, handlers ...gin.HandlerFunc) *Resource {
	res.routes = append(res.routes, route{method: method, path: path, chain: withoutNil(handlers)})
	return res
}

func (res *Resource) GET(path string, handlers ...gin.HandlerFunc) *Resource {
	return res.Handle(http.MethodGet, path, handlers...)
}

func (res *Resource) POST(path string, handlers ...gin.HandlerFunc) *Resource {
	return res.Handle(http.MethodPost, path, handlers...)
}

func (res *Resource) DELETE(path string, handlers ...gin.HandlerFunc) *Resource {
	return res.Handle(http.MethodDelete, path, handlers...)
}

// Nest creates a resource mounted below res
func (res *Resource) Nest(prefix string) *Resource {
	child := NewResource(prefix)
	res.children = append(res.children, child)
	return child
}

// RegisterRoutes implements Registrar
func (res *Resource) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(res.prefix, res.middleware...)
	for _, rt := range res.routes {
		group.Handle(rt.method, rt.path, rt.chain...)
	}
	for _, child := range res.children {
		child.RegisterRoutes(group)
	}
}

func withoutNil(handlers []gin.HandlerFunc) []gin.HandlerFunc {
	return slices.DeleteFunc(slices.Clone(handlers), func(h gin.HandlerFunc) bool {
		return h == nil
	})
}
