package job

import (
	"context"
	"encoding/json"
	"fmt"

	"licensing-controlplane/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type WatchdogPayload struct {
	TenantID string `json:"tenant_id"`
	JobID    string `json:"job_id"`
}

// NewWatchdogTask builds the delayed task that reaps a job still RUNNING past
// its maximum runtime.
func NewWatchdogTask(tenantID, jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(WatchdogPayload{TenantID: tenantID, JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal watchdog payload: %w", err)
	}
	return asynq.NewTask(taskname.JobRuntimeWatchdog, payload), nil
}

// HandleWatchdog fails a job that never reported a terminal status. Jobs that
// finished in time are left untouched.
func (s *Service) HandleWatchdog(ctx context.Context, t *asynq.Task) error {
	var payload WatchdogPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal watchdog payload: %w", err)
	}

	j, err := s.Get(ctx, payload.TenantID, payload.JobID)
	if err != nil {
		return err
	}
	if j.Status != StatusRunning {
		return nil
	}

	now := s.clock.Now()
	j.Status = StatusFailed
	j.FinishedAt = &now
	j.ExecutionTime = now.Sub(j.StartedAt).Seconds()
	j.ErrorMessage = "job exceeded maximum runtime"

	if err := s.db.WithContext(ctx).Save(j).Error; err != nil {
		return fmt.Errorf("failed to fail overrun job: %w", err)
	}

	zap.L().Warn("job reaped by runtime watchdog",
		zap.String("tenant_id", payload.TenantID),
		zap.String("job_id", payload.JobID),
		zap.Float64("execution_time", j.ExecutionTime),
	)
	return nil
}

// RegisterHandlers wires the job task handlers onto the worker mux.
func RegisterHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.JobRuntimeWatchdog, svc.HandleWatchdog)
}
