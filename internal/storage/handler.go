package storage

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
)

// Service identity reported by GET /.
const (
	ServiceName        = "Database Service"
	ServiceDescription = "Handles data storage and retrieval operations"
)

const (
	statusSuccess  = "success"
	messageStored  = "Data stored successfully"
	messageFound   = "Data retrieved successfully"
	messageMissing = "No data found for this user"
	detailBackend  = "Storage backend error"
)

// WriteRecorder records store writes.
type WriteRecorder interface {
	RecordStorageWrite(backend string, err error)
}

// Handler serves the storage HTTP API.
type Handler struct {
	store    Store
	backend  string
	recorder WriteRecorder
	logger   infralogger.Logger
}

// NewHandler creates a Handler. backend labels the write metrics.
func NewHandler(store Store, backend string, recorder WriteRecorder, log infralogger.Logger) *Handler {
	return &Handler{store: store, backend: backend, recorder: recorder, logger: log}
}

// RegisterRoutes mounts the descriptor and the guarded data endpoints.
func (h *Handler) RegisterRoutes(router *gin.Engine, guard gin.HandlerFunc) {
	router.GET("/", h.Root)

	data := router.Group("/", guard)
	data.GET("/read", h.Read)
	data.POST("/write", h.Write)
}

// Root handles GET /
func (h *Handler) Root(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to count records", infralogger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": detailBackend})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service":       ServiceName,
		"description":   ServiceDescription,
		"endpoints":     []string{"/write", "/read", "/health"},
		"records_count": count,
	})
}

type readQuery struct {
	UserID string `binding:"required" form:"user_id"`
}

type readResponse struct {
	Status  string          `json:"status"`
	UserID  string          `json:"user_id"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Read handles GET /read?user_id=
func (h *Handler) Read(c *gin.Context) {
	var q readQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		infragin.AbortWithValidationError(c, err)
		return
	}

	record, found, err := h.store.Read(c.Request.Context(), q.UserID)
	if err != nil {
		h.logger.Error("Failed to read record",
			infralogger.String("user_id", q.UserID),
			infralogger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": detailBackend})
		return
	}

	resp := readResponse{Status: statusSuccess, UserID: q.UserID, Data: record, Message: messageFound}
	if !found {
		resp.Data = json.RawMessage(`{}`)
		resp.Message = messageMissing
	}
	c.JSON(http.StatusOK, resp)
}

type writeRequest struct {
	UserID string          `binding:"required" json:"user_id"`
	Data   json.RawMessage `binding:"required" json:"data"`
}

type writeResponse struct {
	Status   string   `json:"status"`
	UserID   string   `json:"user_id"`
	Message  string   `json:"message"`
	Metadata Metadata `json:"metadata"`
}

// Write handles POST /write
func (h *Handler) Write(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		infragin.AbortWithValidationError(c, err)
		return
	}

	meta, err := h.store.Write(c.Request.Context(), req.UserID, req.Data)
	if errors.Is(err, ErrNotObject) {
		infragin.AbortWithValidationError(c, err)
		return
	}
	h.recorder.RecordStorageWrite(h.backend, err)
	if err != nil {
		h.logger.Error("Failed to write record",
			infralogger.String("user_id", req.UserID),
			infralogger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": detailBackend})
		return
	}

	h.logger.Info("Stored record",
		infralogger.String("user_id", req.UserID),
		infralogger.Int64("version", meta.Version),
	)

	c.JSON(http.StatusOK, writeResponse{
		Status:   statusSuccess,
		UserID:   req.UserID,
		Message:  messageStored,
		Metadata: meta,
	})
}
