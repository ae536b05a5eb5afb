package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	infragin "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/auth"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/config"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/storage"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/telemetry"
)

// StartStorage runs the storage collaborator on the configured backend.
func StartStorage(ctx context.Context, opts Options) error {
	a, err := newApp(ProcessStorage, opts)
	if err != nil {
		return err
	}
	defer a.close()

	store, closeStore, err := SetupStore(ctx, a.cfg.Storage, a.log)
	if err != nil {
		return fmt.Errorf("failed to setup store: %w", err)
	}
	defer closeStore()

	server := a.storageServer(store, telemetry.NewProvider(nil))
	return a.serve(ctx, server)
}

func (a *app) storageServer(store storage.Store, tel *telemetry.Provider) *infragin.Server {
	handler := storage.NewHandler(store, a.cfg.Storage.Backend, tel, a.log)
	guard := auth.NewGuard(a.cfg.Auth.InternalToken, a.log)

	return a.serverBuilder(a.cfg.Storage.Port).
		WithHealthCheck("store", store.Ping).
		WithMiddleware(tel.HTTPMiddleware()).
		WithRoutes(func(router *gin.Engine) {
			handler.RegisterRoutes(router, guard.Middleware())
			router.GET("/metrics", gin.WrapH(tel.Handler()))
		}).
		Build()
}

// SetupStore opens the configured backend. The returned func releases it.
func SetupStore(ctx context.Context, cfg config.StorageConfig, log infralogger.Logger) (storage.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client, err := infraredis.NewClient(ctx, infraredis.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		log.Info("Redis store connected", infralogger.String("address", cfg.Redis.Address))

		closeFn := func() {
			if closeErr := client.Close(); closeErr != nil {
				log.Error("Failed to close Redis client", infralogger.Error(closeErr))
			}
		}
		return storage.NewRedisStore(client, cfg.Redis.KeyPrefix, nil, log), closeFn, nil

	case config.BackendPostgres:
		db, err := SetupDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		store := storage.NewPostgresStore(db, nil, log)
		if schemaErr := store.EnsureSchema(ctx); schemaErr != nil {
			_ = db.Close()
			return nil, nil, schemaErr
		}
		log.Info("Postgres store connected",
			infralogger.String("host", cfg.Database.Host),
			infralogger.String("database", cfg.Database.Database),
		)

		closeFn := func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Error("Failed to close database connection", infralogger.Error(closeErr))
			}
		}
		return store, closeFn, nil

	default:
		log.Info("Using in-memory store; records are lost on restart")
		return storage.NewMemoryStore(nil), func() {}, nil
	}
}

// SetupDatabase opens and pings the PostgreSQL pool.
func SetupDatabase(ctx context.Context, cfg config.StorageConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}
	return db, nil
}
