package license

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func seedLicense(t *testing.T, db *gorm.DB, lic *License) {
	t.Helper()
	require.NoError(t, db.Create(lic).Error)
}

func activeLicense(now time.Time) *License {
	return &License{
		ID:                  "lic-1",
		TenantID:            "acme",
		TenantName:          "Acme Corp",
		MaxApps:             2,
		MaxExecutionsPer24h: 100,
		ValidFrom:           now.Add(-time.Hour),
		ValidTo:             now.Add(365 * 24 * time.Hour),
		Status:              StatusActive,
	}
}

func newValidatorFixture(t *testing.T, now time.Time) (*Validator, *Signer, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, &License{}, &LicenseToken{})
	signer := NewSigner(testSecret, "licensing-controlplane")
	return NewValidator(db, signer, clock.NewFake(now)), signer, db
}

func requireReason(t *testing.T, err error, code errutil.CoreStatus, reason string) {
	t.Helper()
	require.Error(t, err)
	be, ok := errutil.AsBase(err)
	require.True(t, ok)
	require.Equal(t, code, be.Code)
	require.Equal(t, reason, be.Reason)
}

func TestValidateSuccess(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, signer, db := newValidatorFixture(t, now)
	seedLicense(t, db, activeLicense(now))

	raw, err := signer.Sign("acme", now, now.Add(time.Hour))
	require.NoError(t, err)

	validated, err := v.Validate(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "acme", validated.TenantID)
	require.EqualValues(t, 2, validated.MaxApps)
	require.EqualValues(t, 100, validated.MaxExecutionsPer24h)
}

func TestValidateBadSignature(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, _, db := newValidatorFixture(t, now)
	seedLicense(t, db, activeLicense(now))

	other := NewSigner([]byte("anothersecretanothersecret123456"), "licensing-controlplane")
	raw, err := other.Sign("acme", now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), raw)
	requireReason(t, err, errutil.StatusUnauthorized, ReasonInvalidSignature)
}

func TestValidateMalformedToken(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, _, _ := newValidatorFixture(t, now)

	_, err := v.Validate(context.Background(), "not-a-jwt")
	requireReason(t, err, errutil.StatusUnauthorized, ReasonInvalidSignature)
}

func TestValidateExpiredToken(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, signer, db := newValidatorFixture(t, now)
	seedLicense(t, db, activeLicense(now))

	raw, err := signer.Sign("acme", now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), raw)
	requireReason(t, err, errutil.StatusUnauthorized, ReasonInvalidSignature)
}

func TestValidateUnknownLicense(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, signer, _ := newValidatorFixture(t, now)

	raw, err := signer.Sign("ghost", now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), raw)
	requireReason(t, err, errutil.StatusUnauthorized, ReasonUnknownLicense)
}

func TestValidateSuspendedLicense(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, signer, db := newValidatorFixture(t, now)

	lic := activeLicense(now)
	lic.Status = StatusSuspended
	seedLicense(t, db, lic)

	raw, err := signer.Sign("acme", now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), raw)
	requireReason(t, err, errutil.StatusForbidden, ReasonNotActive)
}

func TestValidateRevokedLicense(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, signer, db := newValidatorFixture(t, now)

	lic := activeLicense(now)
	lic.Status = StatusRevoked
	seedLicense(t, db, lic)

	raw, err := signer.Sign("acme", now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), raw)
	requireReason(t, err, errutil.StatusForbidden, ReasonNotActive)
}

func TestValidateLicenseNotYetValid(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, signer, db := newValidatorFixture(t, now)

	lic := activeLicense(now)
	lic.ValidFrom = now.Add(time.Hour)
	lic.ValidTo = now.Add(48 * time.Hour)
	seedLicense(t, db, lic)

	raw, err := signer.Sign("acme", now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), raw)
	requireReason(t, err, errutil.StatusForbidden, ReasonExpiredOrNotYetValid)
}

func TestValidateLicenseWindowPassed(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, signer, db := newValidatorFixture(t, now)

	lic := activeLicense(now)
	lic.ValidFrom = now.Add(-48 * time.Hour)
	lic.ValidTo = now.Add(-time.Hour)
	seedLicense(t, db, lic)

	// Token itself is still inside its own expiry.
	raw, err := signer.Sign("acme", now, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), raw)
	requireReason(t, err, errutil.StatusForbidden, ReasonExpiredOrNotYetValid)
}

func TestValidateTouchesTrackedToken(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v, signer, db := newValidatorFixture(t, now)
	seedLicense(t, db, activeLicense(now))

	raw, err := signer.Sign("acme", now, now.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, db.Create(&LicenseToken{
		ID:        "tok-1",
		LicenseID: "lic-1",
		Token:     raw,
		IsActive:  true,
		ExpiresAt: now.Add(time.Hour),
	}).Error)

	_, err = v.Validate(context.Background(), raw)
	require.NoError(t, err)

	var tok LicenseToken
	require.NoError(t, db.First(&tok, "id = ?", "tok-1").Error)
	require.NotNil(t, tok.LastUsedAt)
}
