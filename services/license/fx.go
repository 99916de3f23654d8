package license

import (
	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/config"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("license.module",
	fx.Provide(
		provideSigner,
		provideValidator,
		NewService,
	),
)

func provideSigner(cfg *config.Config) *Signer {
	return NewSigner([]byte(cfg.JWT.Secret), cfg.JWT.Issuer)
}

func provideValidator(db *gorm.DB, signer *Signer, clk clock.Clock) *Validator {
	return NewValidator(db, signer, clk)
}
