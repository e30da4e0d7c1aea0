package equipment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("equipment not found")

type SearchParams struct {
	Modality string
	Active   *bool
}

type EquipmentRepository interface {
	Create(ctx context.Context, e *Equipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Equipment, error)
	Update(ctx context.Context, e *Equipment) error

	// Bookable reports whether the equipment exists and is active.
	Bookable(ctx context.Context, id uuid.UUID) (bool, error)

	Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Equipment, int, error)
}
