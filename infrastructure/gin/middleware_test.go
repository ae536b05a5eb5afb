package gin_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ginpkg "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infragin "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/gin"
	infrahttp "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/http"
	"github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
)

// capturedRequest is what a handler behind RequestIDLoggerMiddleware sees.
type capturedRequest struct {
	ginID     string
	contextID string
	forwarded string
}

// requestIDRouter records the ids a handler observes, including the header
// an outbound call built from the request context would carry.
func requestIDRouter(log logger.Logger, seen *capturedRequest) *ginpkg.Engine {
	router := ginpkg.New()
	router.Use(infragin.RequestIDLoggerMiddleware(log))
	router.POST("/process", func(c *ginpkg.Context) {
		seen.ginID = c.GetString(infragin.RequestIDKey)
		seen.contextID = infrahttp.RequestIDFromContext(c.Request.Context())

		outbound, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, "http://storage/write", http.NoBody)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		infrahttp.SetRequestID(outbound)
		seen.forwarded = outbound.Header.Get(infrahttp.RequestIDHeader)

		logger.FromContext(c.Request.Context()).Info("Handling process request")
		c.Status(http.StatusOK)
	})
	return router
}

func postProcess(t *testing.T, router http.Handler, requestID string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/process", http.NoBody)
	if requestID != "" {
		req.Header.Set(infragin.RequestIDHeader, requestID)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRequestIDLoggerMiddleware_InboundID(t *testing.T) {
	t.Parallel()

	atLimit := strings.Repeat("a", 128)
	overLimit := strings.Repeat("a", 129)

	tests := []struct {
		name     string
		inbound  string
		wantKept bool
	}{
		{name: "absent", inbound: ""},
		{name: "upstream id", inbound: "scheduler-tick-7", wantKept: true},
		{name: "at length limit", inbound: atLimit, wantKept: true},
		{name: "over length limit", inbound: overLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen capturedRequest
			w := postProcess(t, requestIDRouter(logger.NewNop(), &seen), tt.inbound)
			require.Equal(t, http.StatusOK, w.Code)

			got := w.Header().Get(infragin.RequestIDHeader)
			if tt.wantKept {
				assert.Equal(t, tt.inbound, got)
			} else {
				assert.Regexp(t, `^[0-9a-f]{32}$`, got)
			}

			assert.Equal(t, got, seen.ginID)
			assert.Equal(t, got, seen.contextID)
			assert.Equal(t, got, seen.forwarded)
		})
	}
}

func TestRequestIDLoggerMiddleware_GeneratedIDsDiffer(t *testing.T) {
	t.Parallel()

	var seen capturedRequest
	router := requestIDRouter(logger.NewNop(), &seen)

	first := postProcess(t, router, "").Header().Get(infragin.RequestIDHeader)
	second := postProcess(t, router, "").Header().Get(infragin.RequestIDHeader)
	assert.NotEqual(t, first, second)
}

func TestMiddlewareChain_LogsCarryRequestID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.json")
	log, err := logger.New(logger.Config{Level: "debug", Development: true, OutputPaths: []string{path}})
	require.NoError(t, err)

	var seen capturedRequest
	router := requestIDRouter(log, &seen)
	router.Use(infragin.LoggerMiddleware(log))
	router.POST("/write", func(c *ginpkg.Context) { c.Status(http.StatusAccepted) })

	postProcess(t, router, "req-abc")

	w := httptest.NewRecorder()
	req := httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/write", http.NoBody)
	req.Header.Set(infragin.RequestIDHeader, "req-def")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.NoError(t, log.Sync())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	byMsg := map[string]map[string]any{}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		byMsg[entry["msg"].(string)] = entry
	}

	handlerEntry := byMsg["Handling process request"]
	require.NotNil(t, handlerEntry)
	assert.Equal(t, "req-abc", handlerEntry[infragin.RequestIDKey])

	access := byMsg["HTTP request"]
	require.NotNil(t, access)
	assert.Equal(t, "req-def", access[infragin.RequestIDKey])
	assert.Equal(t, "/write", access["path"])
	assert.InDelta(t, http.StatusAccepted, access["status"], 0)
}
