package migrate

import (
	"licensing-controlplane/services/application"
	"licensing-controlplane/services/job"
	"licensing-controlplane/services/license"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrate", fx.Invoke(Run))

// Run applies the schema for every persisted model at startup.
func Run(db *gorm.DB) error {
	err := db.AutoMigrate(
		&license.License{},
		&license.LicenseToken{},
		&application.Application{},
		&job.Job{},
	)
	if err != nil {
		zap.L().Error("failed to migrate database schema", zap.Error(err))
		return err
	}
	return nil
}
