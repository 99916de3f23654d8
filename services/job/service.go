package job

import (
	"context"
	"errors"
	"time"

	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/config"
	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/pkg/task"
	"licensing-controlplane/services/application"
	"licensing-controlplane/services/license"
	"licensing-controlplane/services/quota"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service starts and finishes quota-gated job executions. A start consumes one
// entry of the tenant's 24h window; finishing records the outcome but never
// gives the entry back, the window slides on its own.
type Service struct {
	db         *gorm.DB
	apps       *application.Service
	execs      *quota.ExecGate
	node       *snowflake.Node
	clock      clock.Clock
	enqueuer   task.Enqueuer
	maxRuntime time.Duration
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Apps     *application.Service
	Quota    *quota.Service
	Node     *snowflake.Node
	Clock    clock.Clock
	Enqueuer task.Enqueuer
	Config   *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		apps:       p.Apps,
		execs:      p.Quota.Execs,
		node:       p.Node,
		clock:      p.Clock,
		enqueuer:   p.Enqueuer,
		maxRuntime: p.Config.Job.MaxRuntime,
	}
}

type StartRequest struct {
	AppID string `json:"app_id" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

// Start admits a new execution against the tenant's sliding window and
// records it as RUNNING. The window entry is written before the row, under
// the tenant's execution lock; a rejected admission leaves no trace.
func (s *Service) Start(ctx context.Context, val *license.Validated, req StartRequest) (*Job, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("tenant_id", val.TenantID),
		zap.String("app_id", req.AppID),
	)

	app, err := s.apps.Get(ctx, val.TenantID, req.AppID)
	if err != nil {
		return nil, err
	}
	if !app.IsActive {
		return nil, errutil.Conflict("application is deactivated")
	}

	jobID := s.node.Generate().String()
	decision, err := s.execs.Admit(ctx, val.TenantID, val.MaxExecutionsPer24h, jobID)
	if err != nil {
		return nil, err
	}
	if !decision.Admitted {
		return nil, errutil.TooManyRequest("execution quota exceeded for the last 24 hours",
			errutil.WithReason(decision.Reason),
			errutil.WithDetails(map[string]any{
				"current": decision.Count,
				"max":     decision.Limit,
			}),
		)
	}

	now := s.clock.Now()
	j := &Job{
		ID:        jobID,
		TenantID:  val.TenantID,
		AppID:     app.ID,
		Name:      req.Name,
		Status:    StatusRunning,
		StartedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		// The window entry stays; it expires with the window and keeps the
		// quota conservative rather than leaky.
		zapLog.Error("failed to insert job after admission", zap.Error(err))
		return nil, errutil.Internal("failed to start job", errutil.WithErr(err))
	}

	s.apps.TouchActivity(ctx, app.ID)
	s.scheduleWatchdog(ctx, j, zapLog)

	zapLog.Info("job started",
		zap.String("job_id", j.ID),
		zap.Int64("executions_in_window", decision.Count),
		zap.Int64("max_executions", decision.Limit),
	)
	return j, nil
}

func (s *Service) scheduleWatchdog(ctx context.Context, j *Job, zapLog *zap.Logger) {
	t, err := NewWatchdogTask(j.TenantID, j.ID)
	if err != nil {
		zapLog.Warn("failed to build watchdog task", zap.String("job_id", j.ID), zap.Error(err))
		return
	}
	_, err = s.enqueuer.Enqueue(ctx, t,
		asynq.ProcessIn(s.maxRuntime),
		asynq.Queue("low"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		zapLog.Warn("failed to schedule runtime watchdog", zap.String("job_id", j.ID), zap.Error(err))
	}
}

type FinishRequest struct {
	Status       Status `json:"status" binding:"required"`
	ErrorMessage string `json:"error_message"`
}

// Finish moves a RUNNING job to a terminal status and records its wall-clock
// execution time in seconds.
func (s *Service) Finish(ctx context.Context, tenantID, jobID string, req FinishRequest) (*Job, error) {
	if !req.Status.Terminal() {
		return nil, errutil.ValidationFailed("status must be COMPLETED, FAILED or CANCELLED")
	}

	j, err := s.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != StatusRunning {
		return nil, errutil.Conflict("job already finished")
	}

	now := s.clock.Now()
	j.Status = req.Status
	j.FinishedAt = &now
	j.ExecutionTime = now.Sub(j.StartedAt).Seconds()
	j.ErrorMessage = req.ErrorMessage

	if err := s.db.WithContext(ctx).Save(j).Error; err != nil {
		return nil, errutil.Internal("failed to finish job", errutil.WithErr(err))
	}

	zap.L().Info("job finished",
		zap.String("tenant_id", tenantID),
		zap.String("job_id", jobID),
		zap.String("status", string(j.Status)),
		zap.Float64("execution_time", j.ExecutionTime),
	)
	return j, nil
}

func (s *Service) Get(ctx context.Context, tenantID, jobID string) (*Job, error) {
	var j Job
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", jobID, tenantID).
		First(&j).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("job not found")
		}
		return nil, errutil.Internal("failed to load job", errutil.WithErr(err))
	}
	return &j, nil
}

func (s *Service) List(ctx context.Context, tenantID string, limit int) ([]Job, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var jobs []Job
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("started_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, errutil.Internal("failed to list jobs", errutil.WithErr(err))
	}
	return jobs, nil
}

// History lists the window entries the quota currently counts, oldest first.
func (s *Service) History(ctx context.Context, tenantID string) ([]quota.Execution, error) {
	return s.execs.History(ctx, tenantID)
}
