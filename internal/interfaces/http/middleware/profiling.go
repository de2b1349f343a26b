package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig selects the requests profiled under route labels
type ProfilingConfig struct {
	Enabled bool
	// SkipPrefixes are path prefixes left unlabelled
	SkipPrefixes []string
}

// DefaultProfilingConfig labels everything but probes and docs
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:      true,
		SkipPrefixes: []string{"/health", "/ready", "/swagger"},
	}
}

// Profiling labels requests with DefaultProfilingConfig
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig runs the rest of the chain under Pyroscope labels for
// the resource ("pagos", "recibos", "reportes"), the route pattern and the
// method, so CPU time can be split per endpoint. Unmatched paths get no
// labels.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if !cfg.Enabled || route == "" || slices.ContainsFunc(cfg.SkipPrefixes, func(p string) bool {
			return strings.HasPrefix(c.Request.URL.Path, p)
		}) {
			c.Next()
			return
		}

		labels := telemetry.HTTPRequestLabels(resourceOf(route), route, c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceOf returns the first static segment of route after "api" and the
// version: "/api/v1/pagos/:id/cancelar" gives "pagos"
func resourceOf(route string) string {
	for _, seg := range strings.Split(route, "/") {
		switch {
		case seg == "", seg == "api", isVersionSegment(seg):
		case seg[0] == ':' || seg[0] == '*':
		default:
			return seg
		}
	}
	return ""
}

// isVersionSegment matches "v1", "V12"
func isVersionSegment(seg string) bool {
	if len(seg) < 2 || (seg[0] != 'v' && seg[0] != 'V') {
		return false
	}
	return strings.Trim(seg[1:], "0123456789") == ""
}
