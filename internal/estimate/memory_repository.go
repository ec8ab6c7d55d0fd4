package estimate

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository. It is
// the default when no database is configured and does not survive restarts.
type InMemoryRepository struct {
	mu        sync.RWMutex
	estimates map[string]*Estimate
}

// NewInMemoryRepository creates a new in-memory estimate repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		estimates: make(map[string]*Estimate),
	}
}

// Save stores a copy of e.
func (r *InMemoryRepository) Save(_ context.Context, e *Estimate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *e
	r.estimates[e.ID] = &cpy
	return nil
}

// Get retrieves an estimate by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Estimate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.estimates[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	cpy := *e
	return &cpy, nil
}

// List returns the most recent estimates, newest first.
func (r *InMemoryRepository) List(_ context.Context, limit int) ([]*Estimate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	items := make([]*Estimate, 0, len(r.estimates))
	for _, e := range r.estimates {
		cpy := *e
		items = append(items, &cpy)
	}
	slices.SortFunc(items, func(a, b *Estimate) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Count returns the number of stored estimates.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.estimates)
}
