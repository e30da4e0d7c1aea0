package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	patients PatientRepository
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(patients PatientRepository, logger zerolog.Logger) *Service {
	return &Service{patients: patients, logger: logger, now: time.Now}
}

type CreateInput struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      *string    `json:"gender"`
	Phone       *string    `json:"phone"`
	Email       *string    `json:"email"`
	Address     *string    `json:"address"`
}

// Create registers a patient and assigns the next year-scoped code.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Patient, error) {
	if in.FirstName == "" {
		return nil, fmt.Errorf("first_name is required")
	}
	if in.LastName == "" {
		return nil, fmt.Errorf("last_name is required")
	}
	if in.Gender != nil && !validGenders[*in.Gender] {
		return nil, fmt.Errorf("invalid gender: %s", *in.Gender)
	}

	last, err := s.patients.LastCodeForPrefix(ctx, CodePrefix(s.now().UTC()))
	if err != nil {
		return nil, err
	}
	code, err := NextCode(last, s.now().UTC())
	if err != nil {
		return nil, err
	}

	p := &Patient{
		PatientCode: code,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateOfBirth: in.DateOfBirth,
		Gender:      in.Gender,
		Phone:       in.Phone,
		Email:       in.Email,
		Address:     in.Address,
		Active:      true,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("patient_id", p.ID.String()).
		Str("patient_code", p.PatientCode).
		Msg("patient registered")
	return s.patients.GetByID(ctx, p.ID)
}

type UpdateInput struct {
	FirstName   *string    `json:"first_name"`
	LastName    *string    `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      *string    `json:"gender"`
	Phone       *string    `json:"phone"`
	Email       *string    `json:"email"`
	Address     *string    `json:"address"`
	Active      *bool      `json:"active"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	if in.Gender != nil && !validGenders[*in.Gender] {
		return nil, fmt.Errorf("invalid gender: %s", *in.Gender)
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		p.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		p.LastName = *in.LastName
	}
	if in.DateOfBirth != nil {
		p.DateOfBirth = in.DateOfBirth
	}
	if in.Gender != nil {
		p.Gender = in.Gender
	}
	if in.Phone != nil {
		p.Phone = in.Phone
	}
	if in.Email != nil {
		p.Email = in.Email
	}
	if in.Address != nil {
		p.Address = in.Address
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.patients.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Patient, error) {
	return s.patients.GetByCode(ctx, code)
}

func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.patients.Exists(ctx, id)
}

func (s *Service) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, params, limit, offset)
}
