package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the read access the reminder core has to users.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
