package student

import (
	"context"

	"recordhub/internal/core/id"
	"recordhub/internal/domain/filter"
)

// Repository stores student records.
type Repository interface {
	// Create inserts the record and fills RollNo, CreatedAt and UpdatedAt.
	Create(ctx context.Context, s *Student) error

	// GetByEmail returns a NOT_FOUND AppError when absent.
	GetByEmail(ctx context.Context, email string) (*Student, error)

	// FindConflict returns "email" or "mobile" when another record (not exclude) already uses it.
	FindConflict(ctx context.Context, email, mobile string, exclude id.ID) (string, error)

	// List returns records matching q ordered by roll number.
	List(ctx context.Context, q filter.CompositeQuery, limit, offset int) ([]*Student, error)

	Update(ctx context.Context, s *Student) error
	DeleteByEmail(ctx context.Context, email string) error
}
