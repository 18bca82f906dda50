package serve

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

// DefaultCORSConfig lets a page on any origin read bundle files and proxied
// assets. Nothing served here is credentialed.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Accept-Encoding",
			"Accept",
			"Origin",
			"Range",
			"Cache-Control",
			"X-Requested-With",
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORS creates a CORS middleware with the provided configuration.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    cfg.AllowMethods,
		AllowHeaders:    cfg.AllowHeaders,
		MaxAge:          cfg.MaxAge,
	})
}

// ConcurrencyLimit lets at most n requests through at once; the rest wait
// until a slot frees up or the client goes away.
func ConcurrencyLimit(n int) gin.HandlerFunc {
	if n <= 0 {
		n = 1
	}
	sem := semaphore.NewWeighted(int64(n))

	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "request cancelled while waiting for a slot",
			})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
