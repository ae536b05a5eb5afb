package scheduler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceName is reported by GET /.
const ServiceName = "Scheduler Service"

// RootHandler handles GET /
func RootHandler(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": ServiceName, "version": version})
	}
}
