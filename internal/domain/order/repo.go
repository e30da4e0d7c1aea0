package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrDuplicateNumber = errors.New("duplicate order number")
)

type SearchParams struct {
	PatientID *uuid.UUID
	Status    string
	Modality  string
}

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Order, int, error)
}
