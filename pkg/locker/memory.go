package locker

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Manager with the same acquire/TTL semantics as the
// redis implementation. It backs tests and single-node deployments.
type Memory struct {
	mu      sync.Mutex
	held    map[string]time.Time
	wait    time.Duration
	backoff time.Duration
}

func NewMemory(wait time.Duration) *Memory {
	return &Memory{
		held:    make(map[string]time.Time),
		wait:    wait,
		backoff: time.Millisecond,
	}
}

func (m *Memory) tryAcquire(key string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if exp, ok := m.held[key]; ok && now.Before(exp) {
		return false
	}
	m.held[key] = now.Add(ttl)
	return true
}

func (m *Memory) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}

func (m *Memory) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	deadline := time.Now().Add(m.wait)

	for !m.tryAcquire(key, ttl) {
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.backoff):
		}
	}

	defer m.release(key)
	return fn()
}
