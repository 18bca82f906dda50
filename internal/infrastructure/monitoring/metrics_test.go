package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsIsolated(t *testing.T) {
	// Two collectors in one process must not collide
	a := NewMetrics()
	b := NewMetrics()

	a.RecordResolution("calculateComposition", "success", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Resolutions.WithLabelValues("calculateComposition", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Resolutions.WithLabelValues("calculateComposition", "success")))
}

func TestSnapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordResolution("calculateComposition", "success", time.Second)
	m.RecordResolution("calculateComposition", "remote_error", time.Second)
	m.RecordCleanupFailure("release page")
	m.RecordHTTPRequest("GET", "/proxy", "502", time.Millisecond, 0)
	m.RecordHTTPRequest("GET", "/health", "200", time.Millisecond, 2)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalResolutions)
	assert.Equal(t, int64(1), snap.FailedResolutions)
	assert.Equal(t, int64(1), snap.CleanupFailures)
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.InDelta(t, 2.0, snap.TotalDuration, 0.001)
}

func TestTimer(t *testing.T) {
	m := NewMetrics()

	timer := NewTimer(m, "inject")
	time.Sleep(2 * time.Millisecond)
	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, elapsed, 2*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.StepDuration))

	// Nil collector still measures
	assert.NotPanics(t, func() { NewTimer(nil, "noop").Stop() })
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(Handler(m)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/health", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "composer_http_requests_total")
}
