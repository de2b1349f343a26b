package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func profiledLabels(t *testing.T, cfg ProfilingConfig, route, path string) map[string]string {
	t.Helper()
	labels := map[string]string{}
	router := gin.New()
	router.Use(ProfilingWithConfig(cfg))
	router.POST(route, func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	return labels
}

func TestProfiling_Labels(t *testing.T) {
	labels := profiledLabels(t, DefaultProfilingConfig(), "/api/v1/pagos/:id/cancelar", "/api/v1/pagos/abc/cancelar")

	assert.Equal(t, map[string]string{
		"controller": "pagos",
		"route":      "/api/v1/pagos/:id/cancelar",
		"method":     "POST",
	}, labels)
}

func TestProfiling_SkipsAndDisabled(t *testing.T) {
	assert.Empty(t, profiledLabels(t, DefaultProfilingConfig(), "/health", "/health"))
	assert.Empty(t, profiledLabels(t, DefaultProfilingConfig(), "/swagger/*any", "/swagger/index.html"))
	assert.Empty(t, profiledLabels(t, ProfilingConfig{Enabled: true, SkipPrefixes: []string{"/api/v1/recibos"}}, "/api/v1/recibos/:id", "/api/v1/recibos/r-1"))
	assert.Empty(t, profiledLabels(t, ProfilingConfig{Enabled: false}, "/api/v1/recibos", "/api/v1/recibos"))
}

func TestResourceOf(t *testing.T) {
	tests := map[string]string{
		"/api/v1/pagos":                   "pagos",
		"/api/v1/recibos/:id/condonar":    "recibos",
		"/api/v2/reportes/cartera-vencida": "reportes",
		"/health":                         "health",
		"/swagger/*any":                   "swagger",
		"":                                "",
		"/api/v1/:id":                     "",
	}
	for route, want := range tests {
		assert.Equal(t, want, resourceOf(route), route)
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vx"))
	assert.False(t, isVersionSegment("pagos"))
}
