// Package config holds the configuration shared by every saga-gateway
// subcommand. Each process reads the sections it needs.
package config

import (
	"fmt"
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/config"
)

// Default service configuration values.
const (
	defaultServiceVersion = "1.0.0"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// Default credentials match the development values the collaborators ship with.
const (
	defaultAppToken      = "YourSuperSecretToken"
	defaultInternalToken = "YourInternalToken"
)

// Default gateway and downstream values.
const (
	defaultGatewayPort       = 8000
	defaultBusinessURL       = "http://localhost:8001"
	defaultDatabaseURL       = "http://localhost:8002"
	defaultDownstreamTimeout = 10 * time.Second
	defaultHealthTimeout     = 5 * time.Second
)

// Default collaborator values.
const (
	defaultTransformPort  = 8001
	defaultStoragePort    = 8002
	defaultSchedulerPort  = 8003
	defaultStorageBackend = BackendMemory
	defaultClientURL      = "http://localhost:8000"
	defaultInterval       = 10 * time.Second
	defaultContent        = "Scheduled task running"
	defaultSchedulerUser  = "scheduler"
	defaultDBUser         = "postgres"
	defaultDBName         = "saga"
)

// Default HTTP server timeouts.
const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	Service    ServiceConfig             `yaml:"service"`
	Auth       AuthConfig                `yaml:"auth"`
	Gateway    GatewayConfig             `yaml:"gateway"`
	Downstream DownstreamConfig          `yaml:"downstream"`
	Storage    StorageConfig             `yaml:"storage"`
	Transform  TransformConfig           `yaml:"transform"`
	Scheduler  SchedulerConfig           `yaml:"scheduler"`
	HTTP       HTTPConfig                `yaml:"http"`
	Logging    infraconfig.LoggingConfig `yaml:"logging"`
}

// ServiceConfig holds runtime settings common to every process.
type ServiceConfig struct {
	Version string `yaml:"version"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// AuthConfig holds the two static shared secrets. AppToken guards the
// gateway; InternalToken guards the collaborators and is attached to every
// outbound downstream call.
type AuthConfig struct {
	AppToken      string `env:"APP_TOKEN"              yaml:"app_token"`
	InternalToken string `env:"INTERNAL_SERVICE_TOKEN" yaml:"internal_token"`
}

// GatewayConfig holds the gateway listener and its two dependencies.
type GatewayConfig struct {
	Port               int    `env:"GATEWAY_PORT"         yaml:"port"`
	BusinessServiceURL string `env:"BUSINESS_SERVICE_URL" yaml:"business_service_url"`
	DatabaseServiceURL string `env:"DATABASE_SERVICE_URL" yaml:"database_service_url"`
}

// DownstreamConfig bounds outbound calls.
type DownstreamConfig struct {
	Timeout       time.Duration `env:"DOWNSTREAM_TIMEOUT" yaml:"timeout"`
	HealthTimeout time.Duration `env:"HEALTH_TIMEOUT"     yaml:"health_timeout"`
}

// StorageConfig holds the storage service settings.
type StorageConfig struct {
	Port     int                        `env:"STORAGE_PORT"    yaml:"port"`
	Backend  string                     `env:"STORAGE_BACKEND" yaml:"backend"`
	Redis    infraconfig.RedisConfig    `yaml:"redis"`
	Database infraconfig.DatabaseConfig `yaml:"database"`
}

// TransformConfig holds the transform service settings.
type TransformConfig struct {
	Port int `env:"TRANSFORM_PORT" yaml:"port"`
	// Delay simulates slow processing before each transform.
	Delay time.Duration `env:"TRANSFORM_DELAY" yaml:"delay"`
}

// SchedulerConfig holds the periodic poller settings.
type SchedulerConfig struct {
	Port             int           `env:"SCHEDULER_PORT"     yaml:"port"`
	ClientServiceURL string        `env:"CLIENT_SERVICE_URL" yaml:"client_service_url"`
	Interval         time.Duration `env:"SCHEDULER_INTERVAL" yaml:"interval"`
	Content          string        `yaml:"content"`
	UserID           string        `yaml:"user_id"`
}

// HTTPConfig holds listener timeouts shared by every process.
type HTTPConfig struct {
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Load loads configuration from a YAML file, applies defaults, then env overrides.
func Load(path string) (*Config, error) {
	cfg, loadErr := infraconfig.LoadWithDefaults(path, setDefaults)
	if loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := infraconfig.ValidateRequired("auth.app_token", c.Auth.AppToken); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("auth.internal_token", c.Auth.InternalToken); err != nil {
		return err
	}

	ports := map[string]int{
		"gateway.port":   c.Gateway.Port,
		"storage.port":   c.Storage.Port,
		"transform.port": c.Transform.Port,
		"scheduler.port": c.Scheduler.Port,
	}
	for field, port := range ports {
		if err := infraconfig.ValidatePort(field, port); err != nil {
			return err
		}
	}

	urls := map[string]string{
		"gateway.business_service_url": c.Gateway.BusinessServiceURL,
		"gateway.database_service_url": c.Gateway.DatabaseServiceURL,
		"scheduler.client_service_url": c.Scheduler.ClientServiceURL,
	}
	for field, u := range urls {
		if err := infraconfig.ValidateURL(field, u); err != nil {
			return err
		}
	}

	if c.Downstream.Timeout <= 0 {
		return &infraconfig.ValidationError{Field: "downstream.timeout", Message: "must be positive"}
	}
	if c.Scheduler.Interval <= 0 {
		return &infraconfig.ValidationError{Field: "scheduler.interval", Message: "must be positive"}
	}
	if c.Transform.Delay < 0 {
		return &infraconfig.ValidationError{Field: "transform.delay", Message: "must not be negative"}
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if err := c.Storage.Database.Validate(); err != nil {
			return err
		}
	default:
		return &infraconfig.ValidationError{Field: "storage.backend", Message: "must be one of: memory, redis, postgres"}
	}

	return c.Logging.Validate()
}

// setDefaults applies default values to all configuration sections.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setAuthDefaults(&cfg.Auth)
	setGatewayDefaults(&cfg.Gateway)
	setDownstreamDefaults(&cfg.Downstream)
	setStorageDefaults(&cfg.Storage)
	setTransformDefaults(&cfg.Transform)
	setSchedulerDefaults(&cfg.Scheduler)
	setHTTPDefaults(&cfg.HTTP)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
}

func setAuthDefaults(a *AuthConfig) {
	if a.AppToken == "" {
		a.AppToken = defaultAppToken
	}

	if a.InternalToken == "" {
		a.InternalToken = defaultInternalToken
	}
}

func setGatewayDefaults(g *GatewayConfig) {
	if g.Port == 0 {
		g.Port = defaultGatewayPort
	}

	if g.BusinessServiceURL == "" {
		g.BusinessServiceURL = defaultBusinessURL
	}

	if g.DatabaseServiceURL == "" {
		g.DatabaseServiceURL = defaultDatabaseURL
	}
}

func setDownstreamDefaults(d *DownstreamConfig) {
	if d.Timeout == 0 {
		d.Timeout = defaultDownstreamTimeout
	}

	if d.HealthTimeout == 0 {
		d.HealthTimeout = defaultHealthTimeout
	}
}

func setStorageDefaults(s *StorageConfig) {
	if s.Port == 0 {
		s.Port = defaultStoragePort
	}

	if s.Backend == "" {
		s.Backend = defaultStorageBackend
	}

	s.Redis.SetDefaults()

	if s.Database.User == "" {
		s.Database.User = defaultDBUser
	}

	if s.Database.Database == "" {
		s.Database.Database = defaultDBName
	}

	s.Database.SetDefaults()
}

func setTransformDefaults(t *TransformConfig) {
	if t.Port == 0 {
		t.Port = defaultTransformPort
	}
}

func setSchedulerDefaults(s *SchedulerConfig) {
	if s.Port == 0 {
		s.Port = defaultSchedulerPort
	}

	if s.ClientServiceURL == "" {
		s.ClientServiceURL = defaultClientURL
	}

	if s.Interval == 0 {
		s.Interval = defaultInterval
	}

	if s.Content == "" {
		s.Content = defaultContent
	}

	if s.UserID == "" {
		s.UserID = defaultSchedulerUser
	}
}

func setHTTPDefaults(h *HTTPConfig) {
	if h.ReadTimeout == 0 {
		h.ReadTimeout = defaultReadTimeout
	}

	if h.WriteTimeout == 0 {
		h.WriteTimeout = defaultWriteTimeout
	}

	if h.IdleTimeout == 0 {
		h.IdleTimeout = defaultIdleTimeout
	}
}

func setLoggingDefaults(l *infraconfig.LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}

	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}
