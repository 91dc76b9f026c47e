package course

import (
	"context"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// Repository persists courses.
type Repository interface {
	// Create returns ErrCourseAlreadyExists for a duplicate id.
	Create(ctx context.Context, c *Course) error

	// Get returns ErrCourseNotFound.
	Get(ctx context.Context, courseID string) (*Course, error)

	// Update returns ErrCourseNotFound.
	Update(ctx context.Context, c *Course) error

	// List returns courses ordered by id.
	List(ctx context.Context, opts ListOptions) ([]*Course, error)
}

// ListOptions filter List.
type ListOptions struct {
	ActiveOnly bool
	TrackID    *uint32
	Pagination shared.Pagination
}
