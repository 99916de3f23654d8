package quota

import (
	"context"
	"time"

	"licensing-controlplane/pkg/rediskey"

	"go.uber.org/zap"
)

// Usage reports one quota dimension of a tenant.
type Usage struct {
	Current     int64   `json:"current"`
	Max         int64   `json:"max"`
	Remaining   int64   `json:"remaining"`
	PercentUsed float64 `json:"percentage_used"`
}

// Status is the full utilization snapshot returned to dashboards and the
// quota status endpoint. It is assembled from lock-free reads and may lag
// in-flight admissions slightly.
type Status struct {
	TenantID     string    `json:"tenant_id"`
	Executions   Usage     `json:"executions"`
	Applications Usage     `json:"applications"`
	Timestamp    time.Time `json:"timestamp"`
}

// Service bundles the two gates with reporting and tenant reset.
type Service struct {
	Apps  *AppGate
	Execs *ExecGate

	store CounterStore
}

func NewService(apps *AppGate, execs *ExecGate, store CounterStore) *Service {
	return &Service{Apps: apps, Execs: execs, store: store}
}

func (s *Service) Status(ctx context.Context, tenantID string, maxApps, maxExecutions int64) (*Status, error) {
	execCount, err := s.Execs.Count(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	appCount, err := s.Apps.Count(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &Status{
		TenantID:     tenantID,
		Executions:   usage(execCount, maxExecutions),
		Applications: usage(appCount, maxApps),
		Timestamp:    time.Now().UTC(),
	}, nil
}

// ResetTenant clears both quota keys for a tenant, used when a license is
// deleted or re-provisioned.
func (s *Service) ResetTenant(ctx context.Context, tenantID string) error {
	err := s.store.Delete(ctx,
		rediskey.BuildAppCountKey(tenantID),
		rediskey.BuildExecutionsKey(tenantID),
	)
	if err != nil {
		return asInfraError(err, tenantID)
	}

	zap.L().Info("reset quota state", zap.String("tenant_id", tenantID))
	return nil
}

func usage(current, max int64) Usage {
	remaining := max - current
	if remaining < 0 {
		remaining = 0
	}
	var pct float64
	if max > 0 {
		pct = float64(current) / float64(max) * 100
	}
	return Usage{Current: current, Max: max, Remaining: remaining, PercentUsed: pct}
}
