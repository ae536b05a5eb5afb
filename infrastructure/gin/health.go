package gin

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/monitoring"
)

// Health status values. Peers compare against StatusOK literally.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

const healthCheckTimeout = 3 * time.Second

// HealthResponse is the default health payload.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service,omitempty"`
	Version string            `json:"version,omitempty"`
	Uptime  string            `json:"uptime,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

var healthState = struct {
	sync.Once
	startTime time.Time
}{}

// RegisterHealthRoutes adds the health endpoints to router:
//   - GET /health with the given handler
//   - HEAD /health for load balancers
//   - GET /health/memory with runtime memory statistics
func RegisterHealthRoutes(router *gin.Engine, health gin.HandlerFunc) {
	initStartTime()

	router.GET("/health", health)
	router.HEAD("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health/memory", func(c *gin.Context) {
		monitoring.MemoryHealthHandler(c.Writer, c.Request)
	})
}

func initStartTime() {
	healthState.Do(func() {
		healthState.startTime = time.Now()
	})
}

func defaultHealthHandler(serviceName, version string, checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:  StatusOK,
			Service: serviceName,
			Version: version,
			Uptime:  formatUptime(time.Since(healthState.startTime)),
		}

		if len(checks) > 0 {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
			defer cancel()

			response.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(ctx); err != nil {
					response.Checks[name] = StatusError
					response.Status = StatusError
					continue
				}
				response.Checks[name] = StatusOK
			}
		}

		statusCode := http.StatusOK
		if response.Status != StatusOK {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}

func formatUptime(d time.Duration) string {
	const hoursPerDay = 24

	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
