package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/config"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/storage"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/telemetry"
)

func testApp(t *testing.T, name string) *app {
	t.Helper()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	return &app{name: name, cfg: cfg, log: infralogger.NewNop()}
}

func TestSetupStore_Memory(t *testing.T) {
	t.Parallel()

	store, closeFn, err := SetupStore(context.Background(), config.StorageConfig{Backend: config.BackendMemory}, infralogger.NewNop())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &storage.MemoryStore{}, store)
}

func TestSetupStore_Redis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	cfg := config.StorageConfig{Backend: config.BackendRedis}
	cfg.Redis.Address = mr.Addr()
	cfg.Redis.KeyPrefix = "test:"

	store, closeFn, err := SetupStore(context.Background(), cfg, infralogger.NewNop())
	require.NoError(t, err)
	defer closeFn()

	require.IsType(t, &storage.RedisStore{}, store)
	require.NoError(t, store.Ping(context.Background()))
}

func TestSetupStore_RedisUnreachable(t *testing.T) {
	t.Parallel()

	cfg := config.StorageConfig{Backend: config.BackendRedis}
	cfg.Redis.Address = "127.0.0.1:1"

	_, _, err := SetupStore(context.Background(), cfg, infralogger.NewNop())
	require.Error(t, err)
}

func TestGatewayServer_Routes(t *testing.T) {
	t.Parallel()

	a := testApp(t, ProcessGateway)
	server := a.gatewayServer(telemetry.NewProvider(prometheus.NewRegistry()))

	for path, want := range map[string]int{
		"/":        http.StatusOK,
		"/metrics": http.StatusOK,
		"/health":  http.StatusOK,
	} {
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, httptest.NewRequestWithContext(t.Context(), http.MethodGet, path, http.NoBody))
		assert.Equal(t, want, w.Code, path)
	}

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/process", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type downStore struct{ storage.Store }

func (downStore) Ping(context.Context) error { return errors.New("down") }

func TestStorageServer_HealthReflectsStore(t *testing.T) {
	t.Parallel()

	a := testApp(t, ProcessStorage)

	healthy := a.storageServer(storage.NewMemoryStore(nil), telemetry.NewProvider(prometheus.NewRegistry()))
	w := httptest.NewRecorder()
	healthy.Router().ServeHTTP(w, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/health", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)

	broken := a.storageServer(downStore{}, telemetry.NewProvider(prometheus.NewRegistry()))
	w = httptest.NewRecorder()
	broken.Router().ServeHTTP(w, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/health", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGatewayServer_MetersHealthRoute(t *testing.T) {
	t.Parallel()

	a := testApp(t, ProcessGateway)
	tel := telemetry.NewProvider(prometheus.NewRegistry())
	server := a.gatewayServer(tel)

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/health", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)

	assert.InDelta(t, 1, testutil.ToFloat64(tel.Metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/health", "200")), 0)
}
