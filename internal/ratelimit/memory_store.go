package ratelimit

import (
	"context"
	"sync"
	"time"
)

const DefaultMaxTrackedKeys = 100_000

type memoryWindow struct {
	count   int
	start   time.Time
	expires time.Time
}

// MemoryStore keeps windows in process. Once maxKeys distinct keys are live
// a new key first triggers a sweep and then evicts the oldest window.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	maxKeys int
}

type MemoryOption func(*MemoryStore)

func WithMaxKeys(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxKeys = n
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*memoryWindow),
		maxKeys: DefaultMaxTrackedKeys,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Hit(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.expires) {
		if !ok && len(s.windows) >= s.maxKeys {
			s.makeRoom(now)
		}
		w = &memoryWindow{count: 1, start: now, expires: now.Add(window)}
		s.windows[key] = w
		return Window{Count: w.count, Start: w.start}, nil
	}

	if w.count <= limit {
		w.count++
	}
	return Window{Count: w.count, Start: w.start}, nil
}

func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.expires) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) makeRoom(now time.Time) {
	if s.sweepLocked(now) > 0 {
		return
	}

	var (
		oldestKey   string
		oldestStart time.Time
	)
	for key, w := range s.windows {
		if oldestKey == "" || w.start.Before(oldestStart) {
			oldestKey = key
			oldestStart = w.start
		}
	}
	if oldestKey != "" {
		delete(s.windows, oldestKey)
	}
}
