package httpapi

import (
	"licensing-controlplane/pkg/config"
	"licensing-controlplane/pkg/health"
	"licensing-controlplane/pkg/middleware"
	"licensing-controlplane/services/license"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		NewRouter,
		NewHandlers,
	),
	fx.Invoke(RegisterRoutes),
)

func NewRouter(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Error())
	return r
}

type RouteParams struct {
	fx.In
	Router    *gin.Engine
	Handlers  *Handlers
	Validator *license.Validator
	Health    health.HealthService
}

func RegisterRoutes(p RouteParams) {
	r := p.Router
	h := p.Handlers

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)

	api := r.Group("/api/v1", middleware.LicenseAuth(p.Validator))
	{
		api.POST("/applications", h.RegisterApplication)
		api.GET("/applications", h.ListApplications)
		api.POST("/applications/:id/activate", h.ActivateApplication)
		api.DELETE("/applications/:id", h.DeactivateApplication)

		api.POST("/jobs", h.StartJob)
		api.GET("/jobs", h.ListJobs)
		api.GET("/jobs/executions", h.JobHistory)
		api.POST("/jobs/:id/finish", h.FinishJob)

		api.GET("/quota/status", h.QuotaStatus)
	}

	admin := r.Group("/admin/v1")
	{
		admin.POST("/licenses", h.CreateLicense)
		admin.GET("/licenses", h.ListLicenses)
		admin.GET("/licenses/:tenant_id", h.GetLicense)
		admin.POST("/licenses/:tenant_id/suspend", h.SuspendLicense)
		admin.POST("/licenses/:tenant_id/reactivate", h.ReactivateLicense)
		admin.POST("/licenses/:tenant_id/revoke", h.RevokeLicense)
		admin.POST("/licenses/:tenant_id/tokens", h.IssueLicenseToken)
		admin.POST("/licenses/:tenant_id/quota/reset", h.ResetQuota)
	}
}
