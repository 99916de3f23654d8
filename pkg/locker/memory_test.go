package locker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryMutualExclusion(t *testing.T) {
	m := NewMemory(time.Second)

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(context.Background(), "k", time.Second, func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxSeen)
}

func TestMemoryLockTimeout(t *testing.T) {
	m := NewMemory(20 * time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.WithLock(context.Background(), "k", time.Minute, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := m.WithLock(context.Background(), "k", time.Second, func() error { return nil })
	require.ErrorIs(t, err, ErrLockTimeout)

	close(release)
}

func TestMemoryKeysIndependent(t *testing.T) {
	m := NewMemory(50 * time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.WithLock(context.Background(), "tenant-a", time.Minute, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	// A different key must not be blocked by tenant-a's lock.
	err := m.WithLock(context.Background(), "tenant-b", time.Second, func() error { return nil })
	require.NoError(t, err)
}

func TestMemoryTTLRecoversAbandonedLock(t *testing.T) {
	m := NewMemory(time.Second)

	// Simulate a crashed holder: acquire without releasing.
	require.True(t, m.tryAcquire("k", 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	err := m.WithLock(context.Background(), "k", time.Second, func() error { return nil })
	require.NoError(t, err)
}

func TestMemoryContextCancelled(t *testing.T) {
	m := NewMemory(time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.WithLock(context.Background(), "k", time.Minute, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := m.WithLock(ctx, "k", time.Second, func() error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
