package transmission

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows transmission log queries.
type ListFilter struct {
	OrderID    *uuid.UUID
	PharmacyID *uuid.UUID
	Success    *bool
}

type Repository interface {
	// Create appends one transmission row. Rows are immutable once written.
	Create(ctx context.Context, t *Transmission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transmission, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Transmission, int, error)
	// MarkRetried flags the original row after a manual retry was attempted.
	// This is the only mutation the table sees; outcome fields stay untouched.
	MarkRetried(ctx context.Context, id uuid.UUID, retriedBy string, retriedAt time.Time) error
	// LatestSuccessfulNewOrder returns the most recent successful new_order
	// transmission for the order/pharmacy pair, or pgx.ErrNoRows.
	LatestSuccessfulNewOrder(ctx context.Context, orderID, pharmacyID uuid.UUID) (*Transmission, error)
}
