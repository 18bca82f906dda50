package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		// Use the route pattern so /proxy?src=... does not explode label cardinality
		path := c.FullPath()
		if path == "" {
			path = "static"
		}

		c.Next()

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(method, path, status, duration, respSize)
	}
}

// Handler serves the collector's registry in Prometheus exposition format
func Handler(metrics *Metrics) http.Handler {
	return promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})
}

// Timer measures step duration
type Timer struct {
	start   time.Time
	metrics *Metrics
	step    string
}

// NewTimer creates a new timer. A nil collector yields a timer that only measures.
func NewTimer(metrics *Metrics, step string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		step:    step,
	}
}

// Stop stops the timer, records the duration and returns it
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.RecordStep(t.step, duration)
	}
	return duration
}
