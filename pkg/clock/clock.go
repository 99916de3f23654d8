package clock

import (
	"sync"
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current wall-clock time. The quota gates take it as a
// dependency so tests can drive the 24h window deterministically.
type Clock interface {
	Now() time.Time
}

var Module = fx.Module("clock", fx.Provide(NewReal))

type Real struct{}

func NewReal() Clock { return Real{} }

func (Real) Now() time.Time { return time.Now() }

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}
