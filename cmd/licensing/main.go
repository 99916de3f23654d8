package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"licensing-controlplane/internal/httpapi"
	"licensing-controlplane/internal/logger"
	"licensing-controlplane/internal/migrate"
	"licensing-controlplane/internal/server"
	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/config"
	"licensing-controlplane/pkg/db"
	"licensing-controlplane/pkg/gen"
	"licensing-controlplane/pkg/health"
	"licensing-controlplane/pkg/locker"
	"licensing-controlplane/pkg/otelcol"
	"licensing-controlplane/pkg/redis"
	"licensing-controlplane/pkg/task"
	"licensing-controlplane/services/application"
	"licensing-controlplane/services/job"
	"licensing-controlplane/services/license"
	"licensing-controlplane/services/quota"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		otelcol.Module,
		db.Module,
		redis.Module,
		task.Client,
		gen.Module,
		clock.Module,
		locker.Module,
		migrate.Module,
		health.Module,
		quota.Module,
		license.Module,
		application.Module,
		job.Module,
		httpapi.Module,
		server.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
