package equipment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	equipment EquipmentRepository
	logger    zerolog.Logger
}

func NewService(equipment EquipmentRepository, logger zerolog.Logger) *Service {
	return &Service{equipment: equipment, logger: logger}
}

type CreateInput struct {
	Name         string  `json:"name"`
	Modality     string  `json:"modality"`
	Room         *string `json:"room"`
	Manufacturer *string `json:"manufacturer"`
	ModelNumber  *string `json:"model_number"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Equipment, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !validModalities[in.Modality] {
		return nil, fmt.Errorf("invalid modality: %s", in.Modality)
	}
	e := &Equipment{
		Name:         in.Name,
		Modality:     in.Modality,
		Room:         in.Room,
		Manufacturer: in.Manufacturer,
		ModelNumber:  in.ModelNumber,
		Active:       true,
	}
	if err := s.equipment.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("equipment_id", e.ID.String()).
		Str("modality", e.Modality).
		Msg("equipment registered")
	return s.equipment.GetByID(ctx, e.ID)
}

type UpdateInput struct {
	Name         *string `json:"name"`
	Modality     *string `json:"modality"`
	Room         *string `json:"room"`
	Manufacturer *string `json:"manufacturer"`
	ModelNumber  *string `json:"model_number"`
	Active       *bool   `json:"active"`
}

// Update applies a partial update. Deactivation stops new bookings but
// leaves existing appointments in place.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Equipment, error) {
	if in.Modality != nil && !validModalities[*in.Modality] {
		return nil, fmt.Errorf("invalid modality: %s", *in.Modality)
	}
	e, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		e.Name = *in.Name
	}
	if in.Modality != nil {
		e.Modality = *in.Modality
	}
	if in.Room != nil {
		e.Room = in.Room
	}
	if in.Manufacturer != nil {
		e.Manufacturer = in.Manufacturer
	}
	if in.ModelNumber != nil {
		e.ModelNumber = in.ModelNumber
	}
	if in.Active != nil {
		e.Active = *in.Active
	}
	if err := s.equipment.Update(ctx, e); err != nil {
		return nil, err
	}
	return s.equipment.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	return s.equipment.GetByID(ctx, id)
}

func (s *Service) Bookable(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.equipment.Bookable(ctx, id)
}

func (s *Service) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Equipment, int, error) {
	return s.equipment.Search(ctx, params, limit, offset)
}
