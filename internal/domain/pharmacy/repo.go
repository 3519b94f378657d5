package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Pharmacy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error)
	Update(ctx context.Context, p *Pharmacy) error
	List(ctx context.Context, limit, offset int) ([]*Pharmacy, int, error)
	// Credentials
	SetCredential(ctx context.Context, cred *Credential) error
	GetCredentials(ctx context.Context, pharmacyID uuid.UUID) ([]*Credential, error)
}
