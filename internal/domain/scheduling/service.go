package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// numberAttempts bounds how many times a create retries identifier
// issuance after losing the appointment_number uniqueness race.
const numberAttempts = 3

// Service coordinates booking admission: every create or time-changing
// update runs its conflict check and write inside a per-equipment
// transactional scope, so concurrent admissions on the same equipment
// serialize and invariant "no two active appointments on one piece of
// equipment overlap" holds.
type Service struct {
	appointments AppointmentRepository
	patients     PatientDirectory
	equipment    EquipmentDirectory
	hours        ClinicHours
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(appts AppointmentRepository, patients PatientDirectory, equipment EquipmentDirectory, hours ClinicHours, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appts,
		patients:     patients,
		equipment:    equipment,
		hours:        hours,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateInput carries a booking request.
type CreateInput struct {
	EquipmentID     uuid.UUID  `json:"equipment_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	TechnologistID  *uuid.UUID `json:"technologist_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedBy       *uuid.UUID `json:"-"`
}

// Create admits a new booking. On a slot conflict nothing is written.
// The appointment number is issued inside the admission transaction;
// losing the daily-sequence race triggers a bounded re-issue.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	if in.EquipmentID == uuid.Nil {
		return nil, validationf("equipment_id is required")
	}
	if in.PatientID == uuid.Nil {
		return nil, validationf("patient_id is required")
	}
	if in.StartTime.IsZero() {
		return nil, validationf("start_time is required")
	}
	if in.DurationMinutes <= 0 {
		return nil, validationf("duration_minutes must be positive")
	}

	ok, err := s.patients.Exists(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPatientNotFound
	}
	bookable, err := s.equipment.Bookable(ctx, in.EquipmentID)
	if err != nil {
		return nil, err
	}
	if !bookable {
		return nil, validationf("equipment %s is not bookable", in.EquipmentID)
	}

	appt := &Appointment{
		EquipmentID:     in.EquipmentID,
		PatientID:       in.PatientID,
		OrderID:         in.OrderID,
		TechnologistID:  in.TechnologistID,
		StartTime:       in.StartTime.UTC(),
		DurationMinutes: in.DurationMinutes,
		Status:          StatusScheduled,
		Notes:           in.Notes,
		CreatedBy:       in.CreatedBy,
	}

	for attempt := 1; ; attempt++ {
		err = s.appointments.InResourceTx(ctx, appt.EquipmentID, func(ctx context.Context) error {
			conflict, err := s.appointments.HasConflict(ctx, appt.EquipmentID, appt.StartTime, appt.DurationMinutes, nil)
			if err != nil {
				return err
			}
			if conflict {
				return ErrSlotConflict
			}
			day := s.now().UTC()
			last, err := s.appointments.LastNumberForPrefix(ctx, NumberPrefix(day))
			if err != nil {
				return err
			}
			number, err := NextNumber(last, day)
			if err != nil {
				return err
			}
			appt.AppointmentNumber = number
			return s.appointments.Create(ctx, appt)
		})
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateNumber) && attempt < numberAttempts {
			s.logger.Warn().Int("attempt", attempt).Msg("appointment number race lost, reissuing")
			continue
		}
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("appointment_number", appt.AppointmentNumber).
		Str("equipment_id", appt.EquipmentID.String()).
		Time("start_time", appt.StartTime).
		Msg("appointment created")
	return s.appointments.GetByID(ctx, appt.ID)
}

// UpdateInput carries a partial appointment update. Nil fields keep
// their current value.
type UpdateInput struct {
	EquipmentID     *uuid.UUID `json:"equipment_id,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	TechnologistID  *uuid.UUID `json:"technologist_id,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

func (in UpdateInput) movesWindow(existing *Appointment) bool {
	if in.EquipmentID != nil && *in.EquipmentID != existing.EquipmentID {
		return true
	}
	if in.StartTime != nil && !in.StartTime.UTC().Equal(existing.StartTime) {
		return true
	}
	if in.DurationMinutes != nil && *in.DurationMinutes != existing.DurationMinutes {
		return true
	}
	return false
}

// apply overlays the specified fields onto a.
func (in UpdateInput) apply(a *Appointment) {
	if in.EquipmentID != nil {
		a.EquipmentID = *in.EquipmentID
	}
	if in.StartTime != nil {
		a.StartTime = in.StartTime.UTC()
	}
	if in.DurationMinutes != nil {
		a.DurationMinutes = *in.DurationMinutes
	}
	if in.OrderID != nil {
		a.OrderID = in.OrderID
	}
	if in.TechnologistID != nil {
		a.TechnologistID = in.TechnologistID
	}
	if in.Notes != nil {
		a.Notes = in.Notes
	}
}

// Reschedule applies a partial update. Conflict validation (excluding
// the appointment itself) runs only when the equipment, start time or
// duration actually changes; changes to notes, order or technologist
// persist without re-checking. On conflict the record is untouched.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	if in.DurationMinutes != nil && *in.DurationMinutes <= 0 {
		return nil, validationf("duration_minutes must be positive")
	}

	existing, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	if !in.movesWindow(existing) {
		merged := *existing
		in.apply(&merged)
		if err := s.appointments.UpdateDetails(ctx, id, merged.OrderID, merged.TechnologistID, merged.Notes); err != nil {
			return nil, err
		}
		return s.appointments.GetByID(ctx, id)
	}

	target := existing.EquipmentID
	if in.EquipmentID != nil {
		target = *in.EquipmentID
	}
	if target != existing.EquipmentID {
		bookable, err := s.equipment.Bookable(ctx, target)
		if err != nil {
			return nil, err
		}
		if !bookable {
			return nil, validationf("equipment %s is not bookable", target)
		}
	}

	excludeID := id
	var merged Appointment
	err = s.appointments.InResourceTx(ctx, target, func(ctx context.Context) error {
		// The pre-read above only chose the lock key. Re-read under the
		// lock so the merge starts from the committed row, not a view
		// that another admission may have outdated.
		current, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return ErrInvalidTransition
		}
		if in.EquipmentID == nil && current.EquipmentID != target {
			// Concurrently moved to other equipment; the held lock no
			// longer covers the appointment's resource.
			return ErrStoreBusy
		}
		merged = *current
		in.apply(&merged)
		conflict, err := s.appointments.HasConflict(ctx, merged.EquipmentID, merged.StartTime, merged.DurationMinutes, &excludeID)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotConflict
		}
		return s.appointments.Update(ctx, &merged)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", id.String()).
		Time("start_time", merged.StartTime).
		Msg("appointment rescheduled")
	return s.appointments.GetByID(ctx, id)
}

// UpdateStatus applies a state-machine transition. Transitions out of
// completed, cancelled or no_show fail with ErrInvalidTransition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, notes *string) (*Appointment, error) {
	if _, err := ParseStatus(string(next)); err != nil {
		return nil, err
	}
	existing, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}
	if err := s.appointments.UpdateStatus(ctx, id, next, notes); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("status", string(next)).
		Msg("appointment status updated")
	return s.appointments.GetByID(ctx, id)
}

// Cancel is a status transition to cancelled; the reason, when given,
// is stored in the notes. The row is never deleted — the number stays
// burned and history stays queryable.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	var notes *string
	if reason != "" {
		notes = &reason
	}
	return s.UpdateStatus(ctx, id, StatusCancelled, notes)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.Search(ctx, params, limit, offset)
}

// AvailableSlots computes the free candidate windows for the equipment
// on the calendar day containing day. The result is a stale-tolerant
// hint; admission is decided by Create.
func (s *Service) AvailableSlots(ctx context.Context, equipmentID uuid.UUID, day time.Time, slotMinutes int) ([]Slot, error) {
	if equipmentID == uuid.Nil {
		return nil, validationf("equipment_id is required")
	}
	if slotMinutes <= 0 {
		return nil, validationf("duration_minutes must be positive")
	}

	dayStart, dayEnd := s.hours.DayBounds(day)
	appts, err := s.appointments.ListActiveInRange(ctx, equipmentID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	busy := make([]Interval, 0, len(appts))
	for _, a := range appts {
		busy = append(busy, Interval{Start: a.StartTime, End: a.EndTime()})
	}

	open, close := s.hours.Window(day)
	return FreeSlots(open, close, time.Duration(slotMinutes)*time.Minute, busy), nil
}
