package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
)

// jsonFileLogger returns a debug-level logger writing to a temp file and a
// func returning the entries written so far.
func jsonFileLogger(t *testing.T) (logger.Logger, func() []map[string]any) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "log.json")
	log, err := logger.New(logger.Config{
		Level:       "debug",
		Development: true,
		OutputPaths: []string{path},
	})
	require.NoError(t, err)

	return log, func() []map[string]any {
		t.Helper()
		_ = log.Sync()

		raw, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		var entries []map[string]any
		scanner := bufio.NewScanner(bytes.NewReader(raw))
		for scanner.Scan() {
			var entry map[string]any
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
			entries = append(entries, entry)
		}
		return entries
	}
}

func TestFromContext_CarriesScopedFields(t *testing.T) {
	t.Parallel()

	base, entries := jsonFileLogger(t)
	scoped := base.With(logger.String("request_id", "req-42"), logger.String("process", "gateway"))

	ctx := logger.WithContext(context.Background(), scoped)
	logger.FromContext(ctx).Info("Pipeline step completed", logger.String("step", "read"))

	got := entries()
	require.Len(t, got, 1)
	assert.Equal(t, "Pipeline step completed", got[0]["msg"])
	assert.Equal(t, "req-42", got[0]["request_id"])
	assert.Equal(t, "gateway", got[0]["process"])
	assert.Equal(t, "read", got[0]["step"])
}

func TestFromContext_InnerScopeReplacesOuter(t *testing.T) {
	t.Parallel()

	base, entries := jsonFileLogger(t)

	ctx := logger.WithContext(context.Background(), base.With(logger.String("request_id", "outer")))
	ctx = logger.WithContext(ctx, base.With(logger.String("request_id", "inner")))
	logger.FromContext(ctx).Warn("Downstream call rejected")

	got := entries()
	require.Len(t, got, 1)
	assert.Equal(t, "inner", got[0]["request_id"])
	assert.Equal(t, "warn", got[0]["level"])
}

func TestFromContext_FallbackWithoutLogger(t *testing.T) {
	t.Parallel()

	first := logger.FromContext(context.Background())
	require.NotNil(t, first)
	assert.Same(t, first, logger.FromContext(context.Background()))

	assert.NotPanics(t, func() {
		first.Warn("no request logger attached", logger.String("path", "/process"))
	})
}
