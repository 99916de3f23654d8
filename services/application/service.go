package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/services/license"
	"licensing-controlplane/services/quota"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service manages application registrations for a tenant. Registration and
// reactivation are quota-gated: the slot is reserved through the app gate
// before the row is written, and released again if the write fails.
type Service struct {
	db    *gorm.DB
	gate  *quota.AppGate
	node  *snowflake.Node
	clock clock.Clock
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Quota *quota.Service
	Node  *snowflake.Node
	Clock clock.Clock
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		gate:  p.Quota.Apps,
		node:  p.Node,
		clock: p.Clock,
	}
}

type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Version     string `json:"version"`
	WebhookURL  string `json:"webhook_url"`
}

// Register creates a new application for the validated tenant. The quota slot
// is acquired first; a failed insert gives the slot back so the counter never
// drifts from the row count.
func (s *Service) Register(ctx context.Context, val *license.Validated, req RegisterRequest) (*Application, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("tenant_id", val.TenantID),
		zap.String("name", req.Name),
	)

	var existing Application
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", val.TenantID, req.Name).
		First(&existing).Error
	if err == nil {
		return nil, errutil.Conflict("application name already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		zapLog.Error("failed to check existing application", zap.Error(err))
		return nil, errutil.Internal("failed to register application", errutil.WithErr(err))
	}

	decision, err := s.gate.Admit(ctx, val.TenantID, val.MaxApps)
	if err != nil {
		return nil, err
	}
	if !decision.Admitted {
		return nil, errutil.Forbidden("maximum application count reached",
			errutil.WithReason(decision.Reason),
			errutil.WithDetails(map[string]any{
				"current": decision.Count,
				"max":     decision.Limit,
			}),
		)
	}

	apiKey, err := newAPIKey()
	if err != nil {
		s.compensate(ctx, val.TenantID)
		return nil, errutil.Internal("failed to register application", errutil.WithErr(err))
	}

	app := &Application{
		ID:          s.node.Generate().String(),
		TenantID:    val.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		WebhookURL:  req.WebhookURL,
		APIKey:      apiKey,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		s.compensate(ctx, val.TenantID)
		zapLog.Error("failed to insert application", zap.Error(err))
		return nil, errutil.Internal("failed to register application", errutil.WithErr(err))
	}

	zapLog.Info("application registered",
		zap.String("app_id", app.ID),
		zap.Int64("app_count", decision.Count),
	)
	return app, nil
}

// compensate returns a reserved quota slot after a failed registration.
func (s *Service) compensate(ctx context.Context, tenantID string) {
	if _, err := s.gate.Release(ctx, tenantID); err != nil {
		zap.L().Error("failed to release app slot after failed registration",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}

func (s *Service) Get(ctx context.Context, tenantID, appID string) (*Application, error) {
	var app Application
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", appID, tenantID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("application not found")
		}
		return nil, errutil.Internal("failed to load application", errutil.WithErr(err))
	}
	return &app, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Application, error) {
	var apps []Application
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&apps).Error
	if err != nil {
		return nil, errutil.Internal("failed to list applications", errutil.WithErr(err))
	}
	return apps, nil
}

// Deactivate retires an application and frees its quota slot. Idempotent on
// already-inactive rows.
func (s *Service) Deactivate(ctx context.Context, tenantID, appID string) (*Application, error) {
	app, err := s.Get(ctx, tenantID, appID)
	if err != nil {
		return nil, err
	}
	if !app.IsActive {
		return app, nil
	}

	app.IsActive = false
	if err := s.db.WithContext(ctx).Save(app).Error; err != nil {
		return nil, errutil.Internal("failed to deactivate application", errutil.WithErr(err))
	}

	count, err := s.gate.Release(ctx, tenantID)
	if err != nil {
		// The row is already inactive; the counter floor keeps this safe to
		// retry but we surface the store failure.
		return nil, err
	}

	zap.L().Info("application deactivated",
		zap.String("tenant_id", tenantID),
		zap.String("app_id", appID),
		zap.Int64("app_count", count),
	)
	return app, nil
}

// Activate re-enables a deactivated application, which requires a free quota
// slot again.
func (s *Service) Activate(ctx context.Context, val *license.Validated, appID string) (*Application, error) {
	app, err := s.Get(ctx, val.TenantID, appID)
	if err != nil {
		return nil, err
	}
	if app.IsActive {
		return app, nil
	}

	decision, err := s.gate.Admit(ctx, val.TenantID, val.MaxApps)
	if err != nil {
		return nil, err
	}
	if !decision.Admitted {
		return nil, errutil.Forbidden("maximum application count reached",
			errutil.WithReason(decision.Reason),
			errutil.WithDetails(map[string]any{
				"current": decision.Count,
				"max":     decision.Limit,
			}),
		)
	}

	app.IsActive = true
	if err := s.db.WithContext(ctx).Save(app).Error; err != nil {
		s.compensate(ctx, val.TenantID)
		return nil, errutil.Internal("failed to activate application", errutil.WithErr(err))
	}
	return app, nil
}

// TouchActivity records that the application just did work. Best effort.
func (s *Service) TouchActivity(ctx context.Context, appID string) {
	now := s.clock.Now()
	err := s.db.WithContext(ctx).
		Model(&Application{}).
		Where("id = ?", appID).
		Update("last_activity", now).Error
	if err != nil {
		zap.L().Warn("failed to touch application activity",
			zap.String("app_id", appID),
			zap.Error(err),
		)
	}
}

func newAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "lk_" + hex.EncodeToString(buf), nil
}
