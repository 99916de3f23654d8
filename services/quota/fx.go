package quota

import (
	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/config"
	"licensing-controlplane/pkg/locker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("quota.module",
	fx.Provide(
		provideStore,
		provideAppGate,
		provideExecGate,
		NewService,
	),
)

func provideStore(client *redis.Client) CounterStore {
	return NewRedisStore(client)
}

func provideAppGate(store CounterStore, locks locker.Manager, cfg *config.Config) *AppGate {
	return NewAppGate(store, locks, cfg.Quota.LockTTL)
}

func provideExecGate(store CounterStore, locks locker.Manager, clk clock.Clock, cfg *config.Config) *ExecGate {
	return NewExecGate(store, locks, clk, cfg.Quota.LockTTL)
}
