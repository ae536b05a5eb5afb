package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the gateway routes. /health is registered by the
// server builder.
func RegisterRoutes(router *gin.Engine, h *Handlers, guard gin.HandlerFunc, metrics http.Handler) {
	router.GET("/", h.Root)
	router.POST("/process", guard, h.Process)

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
}
