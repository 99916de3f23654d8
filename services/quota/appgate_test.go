package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/pkg/locker"
	"licensing-controlplane/pkg/rediskey"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newAppGate() (*AppGate, *MemoryStore) {
	store := NewMemoryStore()
	return NewAppGate(store, locker.NewMemory(5*time.Second), time.Second), store
}

func TestAppGateAdmitUpToLimit(t *testing.T) {
	gate, _ := newAppGate()
	ctx := context.Background()

	d, err := gate.Admit(ctx, "acme", 2)
	require.NoError(t, err)
	require.True(t, d.Admitted)
	require.EqualValues(t, 1, d.Count)

	d, err = gate.Admit(ctx, "acme", 2)
	require.NoError(t, err)
	require.True(t, d.Admitted)
	require.EqualValues(t, 2, d.Count)

	d, err = gate.Admit(ctx, "acme", 2)
	require.NoError(t, err)
	require.False(t, d.Admitted)
	require.Equal(t, ReasonMaxAppsReached, d.Reason)
	require.EqualValues(t, 2, d.Count)
	require.EqualValues(t, 2, d.Limit)
}

func TestAppGateRejectionDoesNotMutate(t *testing.T) {
	gate, _ := newAppGate()
	ctx := context.Background()

	_, err := gate.Admit(ctx, "acme", 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		d, err := gate.Admit(ctx, "acme", 1)
		require.NoError(t, err)
		require.False(t, d.Admitted)
	}

	count, err := gate.Count(ctx, "acme")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestAppGateNoLostUpdates(t *testing.T) {
	gate, _ := newAppGate()
	ctx := context.Background()

	const workers = 50
	const maxApps = 7

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	rejected := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := gate.Admit(ctx, "acme", maxApps)
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			if d.Admitted {
				admitted++
			} else {
				rejected++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, maxApps, admitted)
	require.Equal(t, workers-maxApps, rejected)

	count, err := gate.Count(ctx, "acme")
	require.NoError(t, err)
	require.EqualValues(t, maxApps, count)
}

func TestAppGateReleaseFreesSlot(t *testing.T) {
	gate, _ := newAppGate()
	ctx := context.Background()

	_, err := gate.Admit(ctx, "acme", 1)
	require.NoError(t, err)

	d, err := gate.Admit(ctx, "acme", 1)
	require.NoError(t, err)
	require.False(t, d.Admitted)

	count, err := gate.Release(ctx, "acme")
	require.NoError(t, err)
	require.EqualValues(t, 0, count)

	d, err = gate.Admit(ctx, "acme", 1)
	require.NoError(t, err)
	require.True(t, d.Admitted)
}

func TestAppGateReleaseFloorsAtZero(t *testing.T) {
	gate, _ := newAppGate()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		count, err := gate.Release(ctx, "acme")
		require.NoError(t, err)
		require.EqualValues(t, 0, count)
	}
}

func TestAppGateTenantsIndependent(t *testing.T) {
	gate, _ := newAppGate()
	ctx := context.Background()

	d, err := gate.Admit(ctx, "acme", 1)
	require.NoError(t, err)
	require.True(t, d.Admitted)

	// acme being full must not affect globex.
	d, err = gate.Admit(ctx, "globex", 1)
	require.NoError(t, err)
	require.True(t, d.Admitted)

	d, err = gate.Admit(ctx, "acme", 1)
	require.NoError(t, err)
	require.False(t, d.Admitted)
}

func TestAppGateLockTimeoutIsNotQuotaRejection(t *testing.T) {
	store := NewMemoryStore()
	locks := locker.NewMemory(20 * time.Millisecond)
	gate := NewAppGate(store, locks, time.Second)
	ctx := context.Background()

	// Hold the tenant's app lock so Admit cannot acquire it in time.
	lockKey := rediskey.BuildLockKey(rediskey.BuildAppCountKey("acme"))
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locks.WithLock(ctx, lockKey, time.Minute, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	_, err := gate.Admit(ctx, "acme", 10)
	require.Error(t, err)

	be, ok := errutil.AsBase(err)
	require.True(t, ok)
	require.Equal(t, errutil.StatusUnavailable, be.Code)
	require.Equal(t, ReasonLockTimeout, be.Reason)

	// The failed attempt must not have consumed a slot.
	count, err := gate.Count(ctx, "acme")
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}
