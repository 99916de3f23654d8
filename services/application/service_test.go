package application

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"licensing-controlplane/pkg/clock"
	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/pkg/locker"
	"licensing-controlplane/services/license"
	"licensing-controlplane/services/quota"
	"licensing-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newFixture(t *testing.T) (*Service, *clock.Fake) {
	t.Helper()
	db := testutil.NewTestDB(t, &Application{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFake(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	store := quota.NewMemoryStore()
	locks := locker.NewMemory(time.Second)
	apps := quota.NewAppGate(store, locks, 5*time.Second)
	execs := quota.NewExecGate(store, locks, clk, 5*time.Second)

	svc := NewService(ServiceParams{
		DB:    db,
		Quota: quota.NewService(apps, execs, store),
		Node:  node,
		Clock: clk,
	})
	return svc, clk
}

func validated() *license.Validated {
	return &license.Validated{TenantID: "acme", MaxApps: 2, MaxExecutionsPer24h: 100}
}

func TestRegisterApplication(t *testing.T) {
	svc, _ := newFixture(t)

	app, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "ingest"})
	require.NoError(t, err)
	require.NotEmpty(t, app.ID)
	require.NotEmpty(t, app.APIKey)
	require.True(t, app.IsActive)
	require.Equal(t, "acme", app.TenantID)
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "ingest"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "ingest"})
	be, ok := errutil.AsBase(err)
	require.True(t, ok)
	require.Equal(t, errutil.StatusConflict, be.Code)

	// The failed attempt must not consume a slot.
	app, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "reports"})
	require.NoError(t, err)
	require.True(t, app.IsActive)
}

func TestRegisterEnforcesAppQuota(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "one"})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "two"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "three"})
	be, ok := errutil.AsBase(err)
	require.True(t, ok)
	require.Equal(t, errutil.StatusForbidden, be.Code)
	require.Equal(t, quota.ReasonMaxAppsReached, be.Reason)
}

func TestDeactivateFreesSlot(t *testing.T) {
	svc, _ := newFixture(t)

	one, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "one"})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "two"})
	require.NoError(t, err)

	got, err := svc.Deactivate(context.Background(), "acme", one.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	// The freed slot admits a new registration.
	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "three"})
	require.NoError(t, err)
}

func TestDeactivateIsIdempotent(t *testing.T) {
	svc, _ := newFixture(t)

	app, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "one"})
	require.NoError(t, err)

	_, err = svc.Deactivate(context.Background(), "acme", app.ID)
	require.NoError(t, err)
	_, err = svc.Deactivate(context.Background(), "acme", app.ID)
	require.NoError(t, err)

	// Only one slot was released; two registrations still fit.
	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "two"})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "three"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "four"})
	require.Error(t, err)
}

func TestActivateReclaimsSlot(t *testing.T) {
	svc, _ := newFixture(t)

	app, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "one"})
	require.NoError(t, err)
	_, err = svc.Deactivate(context.Background(), "acme", app.ID)
	require.NoError(t, err)

	got, err := svc.Activate(context.Background(), validated(), app.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}

func TestActivateRefusedWhenQuotaFull(t *testing.T) {
	svc, _ := newFixture(t)

	app, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "one"})
	require.NoError(t, err)
	_, err = svc.Deactivate(context.Background(), "acme", app.ID)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "two"})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), validated(), RegisterRequest{Name: "three"})
	require.NoError(t, err)

	_, err = svc.Activate(context.Background(), validated(), app.ID)
	be, ok := errutil.AsBase(err)
	require.True(t, ok)
	require.Equal(t, quota.ReasonMaxAppsReached, be.Reason)
}

func TestGetScopedToTenant(t *testing.T) {
	svc, _ := newFixture(t)

	app, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "one"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "other", app.ID)
	be, ok := errutil.AsBase(err)
	require.True(t, ok)
	require.Equal(t, errutil.StatusNotFound, be.Code)
}

func TestTouchActivity(t *testing.T) {
	svc, clk := newFixture(t)

	app, err := svc.Register(context.Background(), validated(), RegisterRequest{Name: "one"})
	require.NoError(t, err)
	require.Nil(t, app.LastActivity)

	clk.Advance(time.Minute)
	svc.TouchActivity(context.Background(), app.ID)

	got, err := svc.Get(context.Background(), "acme", app.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastActivity)
}
