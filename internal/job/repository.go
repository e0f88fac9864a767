package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID. Callers must
// treat an evicted job identically to one that never existed.
var ErrJobNotFound = errors.New("job not found")

// Repository defines the interface for job persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Save persists a snapshot of the job to the storage.
	// If the job already exists, it is replaced.
	Save(ctx context.Context, job *Job) error

	// Update applies fn to the stored record for id under the job's own
	// exclusion. Mutations made by fn are visible to subsequent reads
	// without a separate Save, so concurrent updaters of different fields
	// can never overwrite one another. Returns ErrJobNotFound if the job
	// does not exist; otherwise returns fn's error.
	Update(ctx context.Context, id string, fn func(*Job) error) error

	// FindByID retrieves a snapshot of a job by its unique identifier.
	// Returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns snapshots of all jobs.
	List(ctx context.Context) ([]*Job, error)

	// Delete removes a job from storage.
	// Returns ErrJobNotFound if the job does not exist.
	Delete(ctx context.Context, id string) error
}
