package bootstrap

import (
	"context"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/api"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/auth"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/downstream"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/health"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/telemetry"
)

// StartGateway runs the client-facing gateway.
func StartGateway(ctx context.Context, opts Options) error {
	a, err := newApp(ProcessGateway, opts)
	if err != nil {
		return err
	}
	defer a.close()

	server := a.gatewayServer(telemetry.NewProvider(nil))
	return a.serve(ctx, server)
}

func (a *app) gatewayServer(tel *telemetry.Provider) *infragin.Server {
	cfg := a.cfg

	caller := downstream.NewClient(downstream.Config{
		Token:   cfg.Auth.InternalToken,
		Timeout: cfg.Downstream.Timeout,
	}, tel, a.log)

	pipeline := orchestrator.NewPipeline(caller, orchestrator.Endpoints{
		StorageURL:   cfg.Gateway.DatabaseServiceURL,
		TransformURL: cfg.Gateway.BusinessServiceURL,
	}, tel, a.log)

	// Health probes carry no credential.
	probe := downstream.NewClient(downstream.Config{Timeout: cfg.Downstream.HealthTimeout}, tel, a.log)
	aggregator := health.NewAggregator(probe,
		health.Dependency{Name: orchestrator.DependencyTransform, BaseURL: cfg.Gateway.BusinessServiceURL},
		health.Dependency{Name: orchestrator.DependencyStorage, BaseURL: cfg.Gateway.DatabaseServiceURL},
	)

	handlers := api.NewHandlers(pipeline, a.log)
	guard := auth.NewGuard(cfg.Auth.AppToken, a.log)

	a.log.Info("Gateway dependencies configured",
		infralogger.String("business_service_url", cfg.Gateway.BusinessServiceURL),
		infralogger.String("database_service_url", cfg.Gateway.DatabaseServiceURL),
	)

	return a.serverBuilder(cfg.Gateway.Port).
		WithHealthHandler(aggregator.Handler()).
		WithMiddleware(tel.HTTPMiddleware()).
		WithRoutes(func(router *gin.Engine) {
			api.RegisterRoutes(router, handlers, guard.Middleware(), tel.Handler())
		}).
		Build()
}
