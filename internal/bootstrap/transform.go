package bootstrap

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/saga-gateway/internal/auth"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/telemetry"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/transform"
)

// StartTransform runs the business-logic collaborator.
func StartTransform(ctx context.Context, opts Options) error {
	a, err := newApp(ProcessTransform, opts)
	if err != nil {
		return err
	}
	defer a.close()

	tel := telemetry.NewProvider(nil)
	handler := transform.NewHandler(transform.Analyzer{}, a.cfg.Transform.Delay, a.log)
	guard := auth.NewGuard(a.cfg.Auth.InternalToken, a.log).WithInvalidTokenDetail(transform.UnauthorizedDetail)

	server := a.serverBuilder(a.cfg.Transform.Port).
		WithMiddleware(tel.HTTPMiddleware()).
		WithRoutes(func(router *gin.Engine) {
			handler.RegisterRoutes(router, guard.Middleware())
			router.GET("/metrics", gin.WrapH(tel.Handler()))
		}).
		Build()

	return a.serve(ctx, server)
}
