package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("logger",
	fx.Provide(Provide),
	fx.Invoke(ReplaceGlobals),
)

// Provide returns a production-ready zap logger configured for the application.
func Provide() (*zap.Logger, error) {
	return zap.NewProduction()
}

// ReplaceGlobals installs the logger as zap's global so packages can use zap.L().
func ReplaceGlobals(log *zap.Logger) {
	zap.ReplaceGlobals(log)
}
