package cache

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore remembers which gateway callbacks were already processed.
type IdempotencyStore interface {
	// MarkProcessed records key and reports whether it was new.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget removes key so a failed callback can be retried.
	Forget(ctx context.Context, key string) error
	Close() error
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore returns a process-local store. Entries expire lazily.
func NewMemoryStore() IdempotencyStore {
	return &memoryStore{entries: make(map[string]time.Time), now: time.Now}
}

func (s *memoryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.entries[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	if len(s.entries) > 1024 {
		for k, exp := range s.entries {
			if !now.Before(exp) {
				delete(s.entries, k)
			}
		}
	}
	return true, nil
}

func (s *memoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error { return nil }
