package transform

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	infragin "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
)

// Service identity reported by GET /.
const (
	ServiceName        = "Business Logic Service"
	ServiceDescription = "Performs data processing and transformations"
	// UnauthorizedDetail is the 401 detail for a wrong internal token.
	UnauthorizedDetail = "Unauthorized access to Business Logic Service"
)

// Handler serves the transform HTTP API.
type Handler struct {
	analyzer Analyzer
	delay    time.Duration
	logger   infralogger.Logger
}

// NewHandler creates a Handler. delay is slept before each analysis.
func NewHandler(analyzer Analyzer, delay time.Duration, log infralogger.Logger) *Handler {
	return &Handler{analyzer: analyzer, delay: delay, logger: log}
}

// RegisterRoutes mounts the descriptor and the guarded process endpoint.
func (h *Handler) RegisterRoutes(router *gin.Engine, guard gin.HandlerFunc) {
	router.GET("/", h.Root)
	router.POST("/process", guard, h.Process)
}

// Root handles GET /
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     ServiceName,
		"description": ServiceDescription,
		"endpoints":   []string{"/process", "/health"},
	})
}

type processRequest struct {
	Content      *string         `binding:"required" json:"content"`
	ExistingData json.RawMessage `json:"existing_data"`
}

// Process handles POST /process
func (h *Handler) Process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		infragin.AbortWithValidationError(c, err)
		return
	}

	existing := gjson.ParseBytes(req.ExistingData)
	if len(req.ExistingData) > 0 && existing.Type != gjson.Null && !existing.IsObject() {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": "existing_data must be an object"})
		return
	}

	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-c.Request.Context().Done():
			return
		}
	}

	result, err := h.analyzer.Analyze(*req.Content, priorHistory(existing))
	if err != nil {
		h.logger.Error("Failed to analyze content", infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Analysis failed"})
		return
	}

	h.logger.Debug("Processed content",
		infralogger.String("processing_id", result.Analysis.ProcessingID),
		infralogger.Int("word_count", result.Analysis.WordCount),
		infralogger.String("sentiment", result.Analysis.Sentiment),
		infralogger.Int("history_length", len(result.ProcessHistory)),
	)

	c.JSON(http.StatusOK, result)
}

// priorHistory returns existing.process_history; anything other than an
// array counts as empty.
func priorHistory(existing gjson.Result) []json.RawMessage {
	history := existing.Get("process_history")
	if !history.IsArray() {
		return nil
	}

	entries := history.Array()
	out := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, json.RawMessage(e.Raw))
	}
	return out
}
