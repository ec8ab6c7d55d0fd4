package estimate

import "context"

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 50

// Repository persists estimates.
type Repository interface {
	// Save stores an estimate. Saving an existing ID replaces it.
	Save(ctx context.Context, e *Estimate) error

	// Get retrieves an estimate by ID.
	// Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Estimate, error)

	// List returns the most recent estimates, newest first.
	List(ctx context.Context, limit int) ([]*Estimate, error)
}
