package quota

import (
	"context"
	"errors"
	"time"

	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/pkg/locker"
	"licensing-controlplane/pkg/rediskey"

	"go.uber.org/zap"
)

// AppGate enforces the per-tenant cap on registered applications. Every
// mutation happens under the tenant's app lock so concurrent registrations
// are total-ordered by lock acquisition and can never double-spend a slot.
type AppGate struct {
	store   CounterStore
	locks   locker.Manager
	lockTTL time.Duration
}

func NewAppGate(store CounterStore, locks locker.Manager, lockTTL time.Duration) *AppGate {
	return &AppGate{store: store, locks: locks, lockTTL: lockTTL}
}

// Admit atomically checks the tenant's application count against maxApps and
// increments on success. Rejections leave the counter untouched.
func (g *AppGate) Admit(ctx context.Context, tenantID string, maxApps int64) (Decision, error) {
	key := rediskey.BuildAppCountKey(tenantID)

	var decision Decision
	err := g.locks.WithLock(ctx, rediskey.BuildLockKey(key), g.lockTTL, func() error {
		current, err := g.store.GetCount(ctx, key)
		if err != nil {
			return err
		}

		if current >= maxApps {
			zap.L().Warn("max apps reached",
				zap.String("tenant_id", tenantID),
				zap.Int64("current", current),
				zap.Int64("max_apps", maxApps),
			)
			decision = Decision{Count: current, Limit: maxApps, Reason: ReasonMaxAppsReached}
			return nil
		}

		newCount, err := g.store.Increment(ctx, key)
		if err != nil {
			return err
		}

		decision = Decision{Admitted: true, Count: newCount, Limit: maxApps}
		return nil
	})
	if err != nil {
		return Decision{}, asInfraError(err, tenantID)
	}

	return decision, nil
}

// Release frees one application slot, floored at zero. The deletion path is
// already serialized upstream, so no lock is taken here; the floor itself is
// atomic in the store.
func (g *AppGate) Release(ctx context.Context, tenantID string) (int64, error) {
	count, err := g.store.DecrementFloor(ctx, rediskey.BuildAppCountKey(tenantID))
	if err != nil {
		return 0, asInfraError(err, tenantID)
	}
	return count, nil
}

// Count reads the current application count without locking. Reporting only;
// admission decisions always go through Admit.
func (g *AppGate) Count(ctx context.Context, tenantID string) (int64, error) {
	count, err := g.store.GetCount(ctx, rediskey.BuildAppCountKey(tenantID))
	if err != nil {
		return 0, asInfraError(err, tenantID)
	}
	return count, nil
}

// asInfraError classifies lock/store failures. The system fails closed: a
// caller sees a retryable unavailability error, never an admission.
func asInfraError(err error, tenantID string) error {
	if errors.Is(err, locker.ErrLockTimeout) {
		zap.L().Error("failed to acquire quota lock", zap.String("tenant_id", tenantID), zap.Error(err))
		return errutil.Unavailable("quota lock busy, please retry",
			errutil.WithReason(ReasonLockTimeout),
			errutil.WithErr(err),
		)
	}
	zap.L().Error("counter store failure", zap.String("tenant_id", tenantID), zap.Error(err))
	return errutil.Unavailable("quota store unavailable", errutil.WithErr(err))
}
