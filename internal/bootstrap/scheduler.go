package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/saga-gateway/internal/downstream"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/scheduler"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/telemetry"
)

// StartScheduler runs the periodic caller and its status server.
func StartScheduler(ctx context.Context, opts Options) error {
	a, err := newApp(ProcessScheduler, opts)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	tel := telemetry.NewProvider(nil)

	caller := downstream.NewClient(downstream.Config{
		Token:   cfg.Auth.AppToken,
		Timeout: cfg.Downstream.Timeout,
	}, tel, a.log)

	sched, err := scheduler.New(scheduler.Config{
		GatewayURL: cfg.Scheduler.ClientServiceURL,
		Interval:   cfg.Scheduler.Interval,
		Content:    cfg.Scheduler.Content,
		UserID:     cfg.Scheduler.UserID,
	}, caller, tel, a.log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if startErr := sched.Start(ctx); startErr != nil {
		return fmt.Errorf("failed to start scheduler: %w", startErr)
	}
	defer sched.Stop()

	server := a.serverBuilder(cfg.Scheduler.Port).
		WithMiddleware(tel.HTTPMiddleware()).
		WithRoutes(func(router *gin.Engine) {
			router.GET("/", scheduler.RootHandler(cfg.Service.Version))
			router.GET("/metrics", gin.WrapH(tel.Handler()))
		}).
		Build()

	return a.serve(ctx, server)
}
