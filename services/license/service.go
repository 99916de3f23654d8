package license

import (
	"context"
	"errors"
	"time"

	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the license lifecycle: creation, suspension, reactivation,
// revocation, and token issuance. State transitions are the admin surface;
// the Core consumes the resulting rows through the Validator only.
type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	signer *Signer
	clock  clock.Clock
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Signer *Signer
	Clock  clock.Clock
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		signer: p.Signer,
		clock:  p.Clock,
	}
}

type CreateRequest struct {
	TenantID            string    `json:"tenant_id" binding:"required"`
	TenantName          string    `json:"tenant_name" binding:"required"`
	MaxApps             int64     `json:"max_apps" binding:"required"`
	MaxExecutionsPer24h int64     `json:"max_executions_per_24h" binding:"required"`
	ValidFrom           time.Time `json:"valid_from" binding:"required"`
	ValidTo             time.Time `json:"valid_to" binding:"required"`
	ContactEmail        string    `json:"contact_email"`
	ContactName         string    `json:"contact_name"`
	CreatedBy           string    `json:"created_by"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*License, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("tenant_id", req.TenantID),
	)

	if req.MaxApps <= 0 || req.MaxExecutionsPer24h <= 0 {
		return nil, errutil.ValidationFailed("quota limits must be positive")
	}
	if !req.ValidFrom.Before(req.ValidTo) {
		return nil, errutil.ValidationFailed("valid_from must be before valid_to")
	}

	var existing License
	err := s.db.WithContext(ctx).Where("tenant_id = ?", req.TenantID).First(&existing).Error
	if err == nil {
		return nil, errutil.Conflict("license already exists for tenant")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		zapLog.Error("failed to check existing license", zap.Error(err))
		return nil, errutil.Internal("failed to create license", errutil.WithErr(err))
	}

	lic := &License{
		ID:                  s.node.Generate().String(),
		TenantID:            req.TenantID,
		TenantName:          req.TenantName,
		MaxApps:             req.MaxApps,
		MaxExecutionsPer24h: req.MaxExecutionsPer24h,
		ValidFrom:           req.ValidFrom,
		ValidTo:             req.ValidTo,
		Status:              StatusActive,
		ContactEmail:        req.ContactEmail,
		ContactName:         req.ContactName,
		CreatedBy:           req.CreatedBy,
	}

	if err := s.db.WithContext(ctx).Create(lic).Error; err != nil {
		zapLog.Error("failed to create license", zap.Error(err))
		return nil, errutil.Internal("failed to create license", errutil.WithErr(err))
	}

	zapLog.Info("license created",
		zap.Int64("max_apps", lic.MaxApps),
		zap.Int64("max_executions_per_24h", lic.MaxExecutionsPer24h),
	)
	return lic, nil
}

func (s *Service) Get(ctx context.Context, tenantID string) (*License, error) {
	var lic License
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&lic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("license not found")
		}
		return nil, errutil.Internal("failed to load license", errutil.WithErr(err))
	}
	return &lic, nil
}

func (s *Service) List(ctx context.Context) ([]License, error) {
	var licenses []License
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&licenses).Error; err != nil {
		return nil, errutil.Internal("failed to list licenses", errutil.WithErr(err))
	}
	return licenses, nil
}

// Suspend pauses an active license. Reversible via Reactivate.
func (s *Service) Suspend(ctx context.Context, tenantID string) (*License, error) {
	return s.transition(ctx, tenantID, func(lic *License) error {
		if lic.Status != StatusActive {
			return errutil.Conflict("only an active license can be suspended")
		}
		lic.Status = StatusSuspended
		return nil
	})
}

// Reactivate resumes a suspended license unless its validity window has
// already passed.
func (s *Service) Reactivate(ctx context.Context, tenantID string) (*License, error) {
	return s.transition(ctx, tenantID, func(lic *License) error {
		if lic.Status != StatusSuspended {
			return errutil.Conflict("only a suspended license can be reactivated")
		}
		if lic.IsExpired(s.clock.Now()) {
			return errutil.Conflict("license validity window has passed")
		}
		lic.Status = StatusActive
		return nil
	})
}

// Revoke permanently disables a license. Irreversible.
func (s *Service) Revoke(ctx context.Context, tenantID string) (*License, error) {
	return s.transition(ctx, tenantID, func(lic *License) error {
		if lic.Status == StatusRevoked {
			return errutil.Conflict("license already revoked")
		}
		now := s.clock.Now()
		lic.Status = StatusRevoked
		lic.RevokedAt = &now
		return nil
	})
}

func (s *Service) transition(ctx context.Context, tenantID string, mutate func(*License) error) (*License, error) {
	var lic License
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenantID).First(&lic).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.NotFound("license not found")
			}
			return errutil.Internal("failed to load license", errutil.WithErr(err))
		}

		if err := mutate(&lic); err != nil {
			return err
		}

		if err := tx.Save(&lic).Error; err != nil {
			return errutil.Internal("failed to update license", errutil.WithErr(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("license state changed",
		zap.String("tenant_id", tenantID),
		zap.String("status", string(lic.Status)),
	)
	return &lic, nil
}

// IssueToken signs a new license token for the tenant and records it for
// auditing. The token never outlives the license's validity window.
func (s *Service) IssueToken(ctx context.Context, tenantID string, ttl time.Duration) (string, error) {
	lic, err := s.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}

	if lic.Status != StatusActive {
		return "", errutil.Conflict("cannot issue a token for an inactive license")
	}

	now := s.clock.Now()
	expiresAt := now.Add(ttl)
	if expiresAt.After(lic.ValidTo) {
		expiresAt = lic.ValidTo
	}

	raw, err := s.signer.Sign(tenantID, now, expiresAt)
	if err != nil {
		return "", errutil.Internal("failed to sign token", errutil.WithErr(err))
	}

	record := &LicenseToken{
		ID:        s.node.Generate().String(),
		LicenseID: lic.ID,
		Token:     raw,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", errutil.Internal("failed to record token", errutil.WithErr(err))
	}

	zap.L().Info("license token issued",
		zap.String("tenant_id", tenantID),
		zap.Time("expires_at", expiresAt),
	)
	return raw, nil
}
