package license

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/errutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Validator authenticates license tokens and checks license state. It is a
// pure read path: no counters are touched and no locks are taken, so a
// request rejected here leaves no trace in the quota store.
type Validator struct {
	db     *gorm.DB
	signer *Signer
	clock  clock.Clock
}

func NewValidator(db *gorm.DB, signer *Signer, clk clock.Clock) *Validator {
	return &Validator{db: db, signer: signer, clock: clk}
}

// Validate verifies the token signature, re-fetches the license record, and
// checks status and validity window against the current time. The license is
// never cached across requests, so suspension and revocation bite on the
// very next call.
func (v *Validator) Validate(ctx context.Context, rawToken string) (*Validated, error) {
	now := v.clock.Now()

	claims, err := v.signer.Verify(rawToken, now)
	if err != nil {
		return nil, errutil.Unauthorized("invalid license token",
			errutil.WithReason(ReasonInvalidSignature),
		)
	}

	var lic License
	if err := v.db.WithContext(ctx).Where("tenant_id = ?", claims.TenantID).First(&lic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.Unauthorized("license not found",
				errutil.WithReason(ReasonUnknownLicense),
			)
		}
		zap.L().Error("failed to load license", zap.String("tenant_id", claims.TenantID), zap.Error(err))
		return nil, errutil.Unavailable("license store unavailable", errutil.WithErr(err))
	}

	if lic.Status != StatusActive {
		return nil, errutil.Forbidden(
			fmt.Sprintf("license is %s", strings.ToLower(string(lic.Status))),
			errutil.WithReason(ReasonNotActive),
		)
	}

	if now.Before(lic.ValidFrom) || now.After(lic.ValidTo) {
		return nil, errutil.Forbidden("license expired or not yet valid",
			errutil.WithReason(ReasonExpiredOrNotYetValid),
		)
	}

	v.touchToken(ctx, rawToken, now)

	return &Validated{
		TenantID:            lic.TenantID,
		MaxApps:             lic.MaxApps,
		MaxExecutionsPer24h: lic.MaxExecutionsPer24h,
	}, nil
}

// touchToken updates last_used_at for tracked tokens. Best effort: stateless
// tokens that were never stored are fine, and a write failure must not fail
// the admission.
func (v *Validator) touchToken(ctx context.Context, rawToken string, now time.Time) {
	err := v.db.WithContext(ctx).
		Model(&LicenseToken{}).
		Where("token = ? AND is_active = ?", rawToken, true).
		Update("last_used_at", now).Error
	if err != nil {
		zap.L().Debug("failed to update token last_used_at", zap.Error(err))
	}
}
