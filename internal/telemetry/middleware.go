package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const unmatchedRoute = "unmatched"

// HTTPMiddleware records request count, latency and in-flight requests for
// routes registered after it; install it with ServerBuilder.WithMiddleware
// so the health routes are covered. Routes are labelled by their pattern so path
// parameters do not explode cardinality.
func (p *Provider) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		p.Metrics.HTTPInFlight.Inc()
		defer p.Metrics.HTTPInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		p.Metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		p.Metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
