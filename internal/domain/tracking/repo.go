package tracking

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows tracking update queries.
type ListFilter struct {
	OrderLineID *uuid.UUID
	PharmacyID  *uuid.UUID
}

type Repository interface {
	// Create appends one tracking update row. Rows are never updated or
	// deleted.
	Create(ctx context.Context, u *Update) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Update, int, error)
}
