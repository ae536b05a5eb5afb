package bootstrap

import (
	"fmt"

	infraconfig "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/config"
	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/config"
)

// LoadConfig loads and validates configuration. An empty path falls back to
// CONFIG_PATH, then config.yml.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = infraconfig.GetConfigPath("config.yml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateLogger creates a logger tagged with the process name.
func CreateLogger(cfg *config.Config, service string) (infralogger.Logger, error) {
	log, err := infralogger.New(infralogger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(infralogger.String("service", service)), nil
}
