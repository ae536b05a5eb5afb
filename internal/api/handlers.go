// Package api serves the gateway's public HTTP surface.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/orchestrator"
)

// Service identity reported by GET /.
const (
	ServiceName        = "Client Service"
	ServiceDescription = "Entry point for the microservice application. " +
		"This service orchestrates calls to the Business Logic and Database services."
)

// Runner executes the orchestration pipeline.
type Runner interface {
	Run(ctx context.Context, in orchestrator.Input) (*orchestrator.Result, error)
}

// Handlers provides HTTP handlers for the gateway.
type Handlers struct {
	runner Runner
	logger infralogger.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(runner Runner, log infralogger.Logger) *Handlers {
	return &Handlers{runner: runner, logger: log}
}

// Root handles GET /
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     ServiceName,
		"description": ServiceDescription,
		"endpoints":   []string{"/process", "/health"},
	})
}

type processRequest struct {
	Content *string `binding:"required" json:"content"`
	UserID  string  `binding:"required" json:"user_id"`
}

// Process handles POST /process.
//
// A failed step is reported as 200 {"error": "..."}; existing clients
// depend on that encoding.
func (h *Handlers) Process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		infragin.AbortWithValidationError(c, err)
		return
	}

	result, err := h.runner.Run(c.Request.Context(), orchestrator.Input{
		Content: *req.Content,
		UserID:  req.UserID,
	})
	if err != nil {
		h.logger.Debug("Reporting pipeline failure to caller",
			infralogger.String("user_id", req.UserID),
			infralogger.String("request_id", c.GetString(infragin.RequestIDKey)),
		)
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
