package order

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	GetLines(ctx context.Context, orderID uuid.UUID) ([]*OrderLine, error)
	GetLineByID(ctx context.Context, id uuid.UUID) (*OrderLine, error)
	// GetLineForPharmacy resolves the line of an order assigned to a given
	// pharmacy, used when a webhook identifies the order by number only.
	GetLineForPharmacy(ctx context.Context, orderID, pharmacyID uuid.UUID) (*OrderLine, error)
	// UpdateLineTracking persists the tracking fields and status of a line.
	UpdateLineTracking(ctx context.Context, line *OrderLine) error
}
