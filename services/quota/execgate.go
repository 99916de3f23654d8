package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/locker"
	"licensing-controlplane/pkg/rediskey"

	"go.uber.org/zap"
)

// Window is the trailing interval an execution counts against. It slides
// continuously with the clock; there are no bucket boundaries.
const Window = 24 * time.Hour

// keyTTL pads the window so the sorted set outlives its newest entry before
// redis reaps the whole key.
const keyTTL = Window + time.Hour

// Execution is one admitted job start inside the window.
type Execution struct {
	JobID string    `json:"job_id"`
	At    time.Time `json:"at"`
}

// ExecGate enforces the per-tenant 24h execution quota over a sliding window
// of (member, score) pairs in the counter store. Expiry is lazy: stale
// entries are trimmed at the start of the next admission for that tenant,
// never by a background sweep.
type ExecGate struct {
	store   CounterStore
	locks   locker.Manager
	clock   clock.Clock
	lockTTL time.Duration
}

func NewExecGate(store CounterStore, locks locker.Manager, clk clock.Clock, lockTTL time.Duration) *ExecGate {
	return &ExecGate{store: store, locks: locks, clock: clk, lockTTL: lockTTL}
}

// Admit runs the cleanup + count + conditional-record sequence under the
// tenant's execution lock. The recorded member is "jobID:millis" so two jobs
// started in the same millisecond stay distinct.
func (g *ExecGate) Admit(ctx context.Context, tenantID string, maxExecutions int64, jobID string) (Decision, error) {
	key := rediskey.BuildExecutionsKey(tenantID)

	var decision Decision
	err := g.locks.WithLock(ctx, rediskey.BuildLockKey(key), g.lockTTL, func() error {
		now := g.clock.Now().UnixMilli()
		windowStart := now - Window.Milliseconds()

		if removed, err := g.store.TrimWindow(ctx, key, windowStart); err != nil {
			return err
		} else if removed > 0 {
			zap.L().Debug("trimmed expired executions",
				zap.String("tenant_id", tenantID),
				zap.Int64("removed", removed),
			)
		}

		count, err := g.store.CountWindow(ctx, key, windowStart, now)
		if err != nil {
			return err
		}

		if count >= maxExecutions {
			zap.L().Warn("execution quota exceeded",
				zap.String("tenant_id", tenantID),
				zap.Int64("current", count),
				zap.Int64("max_executions", maxExecutions),
			)
			decision = Decision{Count: count, Limit: maxExecutions, Reason: ReasonExecutionQuotaExceeded}
			return nil
		}

		member := fmt.Sprintf("%s:%d", jobID, now)
		if err := g.store.AddToWindow(ctx, key, member, now, keyTTL); err != nil {
			return err
		}

		decision = Decision{Admitted: true, Count: count + 1, Limit: maxExecutions}
		return nil
	})
	if err != nil {
		return Decision{}, asInfraError(err, tenantID)
	}

	return decision, nil
}

// Count reads the current in-window execution count without locking.
// Reporting only; it may be slightly stale relative to in-flight admissions.
func (g *ExecGate) Count(ctx context.Context, tenantID string) (int64, error) {
	now := g.clock.Now().UnixMilli()
	count, err := g.store.CountWindow(ctx, rediskey.BuildExecutionsKey(tenantID), now-Window.Milliseconds(), now)
	if err != nil {
		return 0, asInfraError(err, tenantID)
	}
	return count, nil
}

// History lists the executions still inside the window, oldest first.
func (g *ExecGate) History(ctx context.Context, tenantID string) ([]Execution, error) {
	now := g.clock.Now().UnixMilli()
	entries, err := g.store.RangeWindow(ctx, rediskey.BuildExecutionsKey(tenantID), now-Window.Milliseconds(), now)
	if err != nil {
		return nil, asInfraError(err, tenantID)
	}

	executions := make([]Execution, 0, len(entries))
	for _, e := range entries {
		jobID := e.Member
		if i := strings.LastIndex(jobID, ":"); i > 0 {
			jobID = jobID[:i]
		}
		executions = append(executions, Execution{
			JobID: jobID,
			At:    time.UnixMilli(e.Score).UTC(),
		})
	}
	return executions, nil
}
