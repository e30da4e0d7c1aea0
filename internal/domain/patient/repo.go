package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("patient not found")
	ErrDuplicateCode = errors.New("duplicate patient code")
)

// SearchParams filters patient listings.
type SearchParams struct {
	Name   string
	Code   string
	Active *bool
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByCode(ctx context.Context, code string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// LastCodeForPrefix returns the lexicographic maximum patient_code
	// with the given prefix, or "" when none exists.
	LastCodeForPrefix(ctx context.Context, prefix string) (string, error)

	Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Patient, int, error)
}
