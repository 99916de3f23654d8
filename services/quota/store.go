package quota

import (
	"context"
	"time"
)

// Entry is one recorded execution inside a tenant's sliding window.
type Entry struct {
	Member string
	Score  int64
}

// CounterStore is the shared, cross-process state holder behind the quota
// gates: a time-ordered set per tenant for executions and an integer counter
// per tenant for registered applications. Implementations must make each
// operation atomic; the gates provide check-then-act atomicity on top via
// the lock manager.
type CounterStore interface {
	// AddToWindow inserts member with the given score and refreshes the key
	// TTL so abandoned tenants eventually disappear from the store.
	AddToWindow(ctx context.Context, key, member string, score int64, ttl time.Duration) error
	// CountWindow counts members with score in [min, max].
	CountWindow(ctx context.Context, key string, min, max int64) (int64, error)
	// TrimWindow removes members with score strictly below cutoff and
	// reports how many were dropped.
	TrimWindow(ctx context.Context, key string, cutoff int64) (int64, error)
	// RangeWindow returns members with score in [min, max], ordered by score.
	RangeWindow(ctx context.Context, key string, min, max int64) ([]Entry, error)

	// GetCount reads an integer counter, 0 when absent.
	GetCount(ctx context.Context, key string) (int64, error)
	// Increment adds one and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)
	// DecrementFloor subtracts one but never goes below zero, returning the
	// new value.
	DecrementFloor(ctx context.Context, key string) (int64, error)

	Delete(ctx context.Context, keys ...string) error
}
