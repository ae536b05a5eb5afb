package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/auth"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/storage"
)

const internalToken = "internal"

type writeCounter struct {
	ok, failed int
}

func (w *writeCounter) RecordStorageWrite(_ string, err error) {
	if err != nil {
		w.failed++
		return
	}
	w.ok++
}

type failingStore struct{ storage.Store }

func (failingStore) Read(context.Context, string) (json.RawMessage, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingStore) Write(context.Context, string, json.RawMessage) (storage.Metadata, error) {
	return storage.Metadata{}, errors.New("disk on fire")
}

func newRouter(store storage.Store, rec storage.WriteRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	guard := auth.NewGuard(internalToken, infralogger.NewNop())
	storage.NewHandler(store, "memory", rec, infralogger.NewNop()).RegisterRoutes(router, guard.Middleware())
	return router
}

func do(t *testing.T, router http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequestWithContext(t.Context(), method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+internalToken)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestHandler_ReadWriteRoundTrip(t *testing.T) {
	t.Parallel()

	rec := &writeCounter{}
	router := newRouter(storage.NewMemoryStore(fixedClock()), rec)

	code, body := do(t, router, http.MethodGet, "/read?user_id=u42", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "No data found for this user", body["message"])
	assert.Equal(t, map[string]any{}, body["data"])

	code, body = do(t, router, http.MethodPost, "/write", `{"user_id":"u42","data":{"analysis":{"word_count":5}}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Data stored successfully", body["message"])
	assert.Equal(t, map[string]any{"last_updated": fixedStamp, "version": float64(1)}, body["metadata"])

	code, body = do(t, router, http.MethodGet, "/read?user_id=u42", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Data retrieved successfully", body["message"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data, "analysis")
	assert.Contains(t, data, "metadata")

	code, body = do(t, router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, storage.ServiceName, body["service"])
	assert.InDelta(t, 1, body["records_count"], 0)

	assert.Equal(t, 1, rec.ok)
}

func TestHandler_Validation(t *testing.T) {
	t.Parallel()

	router := newRouter(storage.NewMemoryStore(fixedClock()), &writeCounter{})

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{name: "read without user_id", method: http.MethodGet, target: "/read"},
		{name: "write without user_id", method: http.MethodPost, target: "/write", body: `{"data":{}}`},
		{name: "write without data", method: http.MethodPost, target: "/write", body: `{"user_id":"u1"}`},
		{name: "write with array data", method: http.MethodPost, target: "/write", body: `{"user_id":"u1","data":[1]}`},
		{name: "write with malformed body", method: http.MethodPost, target: "/write", body: `{"user_id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, body := do(t, router, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, code)
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestHandler_RequiresToken(t *testing.T) {
	t.Parallel()

	router := newRouter(storage.NewMemoryStore(fixedClock()), &writeCounter{})

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/read?user_id=u1", http.NoBody)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"detail":"Invalid token"}`, w.Body.String())
}

func TestHandler_BackendFailure(t *testing.T) {
	t.Parallel()

	rec := &writeCounter{}
	router := newRouter(failingStore{}, rec)

	code, body := do(t, router, http.MethodGet, "/read?user_id=u1", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Storage backend error", body["detail"])

	code, _ = do(t, router, http.MethodPost, "/write", `{"user_id":"u1","data":{}}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, 1, rec.failed)
}
