// Package snapshot persists the merged collection of a search run so a
// restart recovers the last known result set. Writes overwrite the previous
// snapshot wholesale; there is no incremental append.
package snapshot

import (
	"context"
	"errors"
	"sync"

	"github.com/hackhub/hackhub/internal/domain"
)

// KeyLatest is the alias updated on every insert of the most recent run.
const KeyLatest = "latest"

// RunKey returns the snapshot key scoping one run's collection.
func RunKey(runID string) string {
	return "run:" + runID
}

// ErrNotFound is returned when no snapshot exists under a key.
var ErrNotFound = errors.New("snapshot: not found")

// Store durably caches event collections under string keys.
type Store interface {
	// Write overwrites the snapshot under key with the full collection.
	Write(ctx context.Context, key string, events []domain.Event) error
	// Read returns the snapshot under key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]domain.Event, error)
	// Close releases backend resources.
	Close() error
}

// memoryStore is the in-memory backend used by tests and by deployments that
// do not want durability.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Event
}

// NewMemoryStore creates an in-memory snapshot store.
func NewMemoryStore() Store {
	return &memoryStore{data: make(map[string][]domain.Event)}
}

func (s *memoryStore) Write(ctx context.Context, key string, events []domain.Event) error {
	cp := make([]domain.Event, len(events))
	copy(cp, events)
	s.mu.Lock()
	s.data[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Read(ctx context.Context, key string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]domain.Event, len(events))
	copy(cp, events)
	return cp, nil
}

func (s *memoryStore) Close() error { return nil }
