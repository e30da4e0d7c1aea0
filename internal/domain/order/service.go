package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// numberAttempts bounds re-issuance when a random order number collides.
const numberAttempts = 3

type PatientDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	orders   OrderRepository
	patients PatientDirectory
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(orders OrderRepository, patients PatientDirectory, logger zerolog.Logger) *Service {
	return &Service{orders: orders, patients: patients, logger: logger, now: time.Now}
}

type CreateInput struct {
	PatientID          uuid.UUID  `json:"patient_id"`
	OrderingPhysician  string     `json:"ordering_physician"`
	Modality           string     `json:"modality"`
	ProcedureCode      *string    `json:"procedure_code"`
	ClinicalIndication *string    `json:"clinical_indication"`
	Priority           string     `json:"priority"`
	CreatedBy          *uuid.UUID `json:"-"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if in.OrderingPhysician == "" {
		return nil, fmt.Errorf("ordering_physician is required")
	}
	if in.Modality == "" {
		return nil, fmt.Errorf("modality is required")
	}
	if in.Priority == "" {
		in.Priority = "routine"
	}
	if !validPriorities[in.Priority] {
		return nil, fmt.Errorf("invalid priority: %s", in.Priority)
	}

	ok, err := s.patients.Exists(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("patient %s not found", in.PatientID)
	}

	o := &Order{
		PatientID:          in.PatientID,
		OrderingPhysician:  in.OrderingPhysician,
		Modality:           in.Modality,
		ProcedureCode:      in.ProcedureCode,
		ClinicalIndication: in.ClinicalIndication,
		Priority:           in.Priority,
		Status:             StatusPending,
		CreatedBy:          in.CreatedBy,
	}
	for attempt := 1; ; attempt++ {
		now := s.now().UTC()
		o.OrderNumber = NewOrderNumber(now)
		o.AccessionNumber = NewAccessionNumber(now)
		err = s.orders.Create(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateNumber) && attempt < numberAttempts {
			s.logger.Warn().Int("attempt", attempt).Msg("order number collision, reissuing")
			continue
		}
		return nil, err
	}

	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("order_number", o.OrderNumber).
		Str("accession_number", o.AccessionNumber).
		Msg("imaging order created")
	return s.orders.GetByID(ctx, o.ID)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	if !validStatuses[status] {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCompleted || o.Status == StatusCancelled {
		return nil, fmt.Errorf("order is %s and cannot change status", o.Status)
	}
	o.Status = status
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Order, int, error) {
	return s.orders.Search(ctx, params, limit, offset)
}
