package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/saga-gateway/internal/config"
)

func missingPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yml")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(missingPath(t))
	require.NoError(t, err)

	assert.Equal(t, "YourSuperSecretToken", cfg.Auth.AppToken)
	assert.Equal(t, "YourInternalToken", cfg.Auth.InternalToken)
	assert.Equal(t, 8000, cfg.Gateway.Port)
	assert.Equal(t, "http://localhost:8001", cfg.Gateway.BusinessServiceURL)
	assert.Equal(t, "http://localhost:8002", cfg.Gateway.DatabaseServiceURL)
	assert.Equal(t, 10*time.Second, cfg.Downstream.Timeout)
	assert.Equal(t, config.BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, "scheduler", cfg.Scheduler.UserID)
	assert.Equal(t, "Scheduled task running", cfg.Scheduler.Content)
	assert.Zero(t, cfg.Transform.Delay)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_TOKEN", "app-secret")
	t.Setenv("INTERNAL_SERVICE_TOKEN", "internal-secret")
	t.Setenv("BUSINESS_SERVICE_URL", "http://business:8001")
	t.Setenv("DATABASE_SERVICE_URL", "http://database:8002")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("DOWNSTREAM_TIMEOUT", "3s")

	cfg, err := config.Load(missingPath(t))
	require.NoError(t, err)

	assert.Equal(t, "app-secret", cfg.Auth.AppToken)
	assert.Equal(t, "internal-secret", cfg.Auth.InternalToken)
	assert.Equal(t, "http://business:8001", cfg.Gateway.BusinessServiceURL)
	assert.Equal(t, "http://database:8002", cfg.Gateway.DatabaseServiceURL)
	assert.Equal(t, config.BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Address)
	assert.Equal(t, 3*time.Second, cfg.Downstream.Timeout)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := "gateway:\n  port: 9000\ntransform:\n  delay: 2s\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, 2*time.Second, cfg.Transform.Delay)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad backend", env: map[string]string{"STORAGE_BACKEND": "cassandra"}},
		{name: "relative business url", env: map[string]string{"BUSINESS_SERVICE_URL": "business:8001"}},
		{name: "bad port", env: map[string]string{"GATEWAY_PORT": "70000"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load(missingPath(t))
			require.Error(t, err)
		})
	}
}

func TestValidate_EmptyToken(t *testing.T) {
	cfg, err := config.Load(missingPath(t))
	require.NoError(t, err)

	cfg.Auth.AppToken = ""
	require.Error(t, cfg.Validate())
}
