package ingest

import (
	"errors"
	"sync"
)

// ErrRunNotFound is returned when a run ID is not known to the registry.
var ErrRunNotFound = errors.New("ingest: run not found")

// Registry tracks live and completed runs by ID so concurrent searches stay
// isolated instead of clobbering one shared collection.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRegistry creates an empty run registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// Add registers a run under its ID.
func (r *Registry) Add(run *Run) {
	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()
}

// Get looks up a run by ID.
func (r *Registry) Get(id string) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// Len returns the number of tracked runs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}
