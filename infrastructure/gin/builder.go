package gin

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
)

// ServerBuilder provides a fluent API for building HTTP servers.
type ServerBuilder struct {
	config        *Config
	logger        logger.Logger
	setupRoutes   func(*gin.Engine)
	middleware    []gin.HandlerFunc
	healthHandler gin.HandlerFunc
	healthChecks  map[string]HealthCheck
}

// HealthCheck reports an error when a local resource the service depends on
// is unavailable.
type HealthCheck func(ctx context.Context) error

// NewServerBuilder creates a new server builder with the given configuration.
func NewServerBuilder(serviceName string, port int) *ServerBuilder {
	return &ServerBuilder{
		config:       NewConfig(serviceName, port),
		healthChecks: make(map[string]HealthCheck),
	}
}

// WithLogger sets the logger.
func (b *ServerBuilder) WithLogger(log logger.Logger) *ServerBuilder {
	b.logger = log
	return b
}

// WithDebug enables or disables debug mode.
func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.config.Debug = debug
	return b
}

// WithVersion sets the service version.
func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.config.ServiceVersion = version
	return b
}

// WithTimeouts sets all timeout values for the HTTP server. Zero values keep
// the defaults.
func (b *ServerBuilder) WithTimeouts(read, write, idle time.Duration) *ServerBuilder {
	if read > 0 {
		b.config.ReadTimeout = read
	}
	if write > 0 {
		b.config.WriteTimeout = write
	}
	if idle > 0 {
		b.config.IdleTimeout = idle
	}
	return b
}

// WithHealthCheck adds a named check to the default GET /health handler.
func (b *ServerBuilder) WithHealthCheck(name string, check HealthCheck) *ServerBuilder {
	b.healthChecks[name] = check
	return b
}

// WithHealthHandler replaces the default GET /health handler. HEAD /health and
// GET /health/memory are still registered.
func (b *ServerBuilder) WithHealthHandler(h gin.HandlerFunc) *ServerBuilder {
	b.healthHandler = h
	return b
}

// WithMiddleware appends handlers that run ahead of every route, including
// the health routes the builder registers.
func (b *ServerBuilder) WithMiddleware(middleware ...gin.HandlerFunc) *ServerBuilder {
	b.middleware = append(b.middleware, middleware...)
	return b
}

// WithRoutes sets the route setup function.
func (b *ServerBuilder) WithRoutes(setupRoutes func(*gin.Engine)) *ServerBuilder {
	b.setupRoutes = setupRoutes
	return b
}

// Build creates the server with all configured options.
func (b *ServerBuilder) Build() *Server {
	if b.logger == nil {
		b.logger = logger.NewNop()
	}

	health := b.healthHandler
	if health == nil {
		health = defaultHealthHandler(b.config.ServiceName, b.config.ServiceVersion, b.healthChecks)
	}

	wrappedSetup := func(router *gin.Engine) {
		if len(b.middleware) > 0 {
			router.Use(b.middleware...)
		}

		RegisterHealthRoutes(router, health)

		if b.setupRoutes != nil {
			b.setupRoutes(router)
		}
	}

	return NewServer(b.config, b.logger, wrappedSetup)
}
