package job

import (
	"context"
	"sync"
)

// MemoryRepository is the in-memory registry. It stores clones and hands
// out clones, so callers can never observe a half-updated record and per-job
// exclusion stays with each Job's own mutex rather than the map lock.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Job
}

// NewMemoryRepository creates an empty in-memory job registry.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*Job)}
}

// Save stores a snapshot of the job, replacing any previous one. The clone
// is taken before the map lock so a slow aggregate read never blocks
// lookups of unrelated jobs.
func (r *MemoryRepository) Save(_ context.Context, j *Job) error {
	snapshot := j.Clone()
	r.mu.Lock()
	r.byID[j.ID] = snapshot
	r.mu.Unlock()
	return nil
}

// Update applies fn to the stored record in place. The record is looked up
// under the map lock but fn runs outside it, relying on the Job's own mutex
// for exclusion, so a slow mutation of one job never blocks lookups of
// another.
func (r *MemoryRepository) Update(_ context.Context, id string, fn func(*Job) error) error {
	r.mu.RLock()
	stored, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	return fn(stored)
}

// FindByID returns a snapshot of the job, or ErrJobNotFound.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	stored, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return stored.Clone(), nil
}

// List returns snapshots of every stored job, in no particular order.
func (r *MemoryRepository) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Job, 0, len(r.byID))
	for _, stored := range r.byID {
		out = append(out, stored.Clone())
	}
	return out, nil
}

// Delete removes the job, returning ErrJobNotFound when it is absent.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrJobNotFound
	}
	delete(r.byID, id)
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
