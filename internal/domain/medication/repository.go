package medication

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for Medication entities.
type Repository interface {
	Create(ctx context.Context, med *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Medication, error)
	Update(ctx context.Context, med *Medication) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}
