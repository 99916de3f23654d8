package quota

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process CounterStore with the same semantics as
// RedisStore. It backs tests and single-node setups; TTLs are accepted but
// not enforced since process memory dies with the process.
type MemoryStore struct {
	mu       sync.Mutex
	windows  map[string]map[string]int64
	counters map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows:  make(map[string]map[string]int64),
		counters: make(map[string]int64),
	}
}

func (s *MemoryStore) AddToWindow(_ context.Context, key, member string, score int64, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = make(map[string]int64)
		s.windows[key] = w
	}
	w[member] = score
	return nil
}

func (s *MemoryStore) CountWindow(_ context.Context, key string, min, max int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, score := range s.windows[key] {
		if score >= min && score <= max {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) TrimWindow(_ context.Context, key string, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for member, score := range s.windows[key] {
		if score < cutoff {
			delete(s.windows[key], member)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) RangeWindow(_ context.Context, key string, min, max int64) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0)
	for member, score := range s.windows[key] {
		if score >= min && score <= max {
			entries = append(entries, Entry{Member: member, Score: score})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score < entries[j].Score })
	return entries, nil
}

func (s *MemoryStore) GetCount(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

func (s *MemoryStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *MemoryStore) DecrementFloor(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters[key] <= 0 {
		s.counters[key] = 0
		return 0, nil
	}
	s.counters[key]--
	return s.counters[key], nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.windows, key)
		delete(s.counters, key)
	}
	return nil
}
