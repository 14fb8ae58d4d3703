package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classmark/classmark-api/internal/service"
)

// Metrics captures request duration and status for every route.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		// Record against the route template so path parameters don't explode
		// label cardinality; unmatched routes fall back to the raw path.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if path == "/metrics" {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
