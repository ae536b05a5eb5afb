// Package bootstrap wires configuration, logging, storage and HTTP servers
// for each saga-gateway process.
package bootstrap

import (
	"context"
	"fmt"

	infragin "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/profiling"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/config"
)

// Process names, used for log tagging and profiling.
const (
	ProcessGateway   = "gateway"
	ProcessStorage   = "storage"
	ProcessTransform = "transform"
	ProcessScheduler = "scheduler"
)

// Options are the command-line inputs shared by every process.
type Options struct {
	ConfigPath string
	Debug      bool
}

// app holds what every process needs before it builds its own server.
type app struct {
	name     string
	cfg      *config.Config
	log      infralogger.Logger
	profiler *profiling.PyroscopeProfiler
}

// newApp runs phases 0 and 1: profiling, config and logger.
func newApp(name string, opts Options) (*app, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}

	log, err := CreateLogger(cfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	profiling.StartPprofServer(log)

	profiler, err := profiling.StartPyroscope(name, cfg.Service.Version, log)
	if err != nil {
		// Profiling is optional; keep serving without it.
		log.Warn("Pyroscope profiling disabled", infralogger.Error(err))
	}

	return &app{name: name, cfg: cfg, log: log, profiler: profiler}, nil
}

func (a *app) close() {
	if err := a.profiler.Stop(); err != nil {
		a.log.Warn("Failed to stop profiler", infralogger.Error(err))
	}
	_ = a.log.Sync()
}

// serverBuilder returns a builder carrying the shared HTTP settings.
func (a *app) serverBuilder(port int) *infragin.ServerBuilder {
	return infragin.NewServerBuilder(a.name, port).
		WithLogger(a.log).
		WithDebug(a.cfg.Service.Debug).
		WithVersion(a.cfg.Service.Version).
		WithTimeouts(a.cfg.HTTP.ReadTimeout, a.cfg.HTTP.WriteTimeout, a.cfg.HTTP.IdleTimeout)
}

// serve runs server until ctx ends or a shutdown signal arrives.
func (a *app) serve(ctx context.Context, server *infragin.Server) error {
	a.log.Info("Starting HTTP server",
		infralogger.Int("port", server.Config().Port),
		infralogger.String("version", a.cfg.Service.Version),
	)

	if err := server.RunWithGracefulShutdown(ctx); err != nil {
		a.log.Error("Server error", infralogger.Error(err))
		return fmt.Errorf("server error: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
