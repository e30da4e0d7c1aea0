package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchParams filters appointment listings.
type SearchParams struct {
	PatientID   *uuid.UUID
	EquipmentID *uuid.UUID
	Status      *Status
	From        *time.Time
	To          *time.Time
}

// AppointmentRepository is the persistence contract for the booking
// engine. Implementations must map a unique-constraint violation on
// appointment_number to ErrDuplicateNumber, a missing row to
// ErrNotFound, and lock-wait timeouts or serialization aborts to
// ErrStoreBusy.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error

	// UpdateDetails writes only order_id, technologist_id and notes.
	// Window columns (equipment, start, duration) are never touched, so
	// a detail update cannot undo a concurrently admitted reschedule.
	UpdateDetails(ctx context.Context, id uuid.UUID, orderID, technologistID *uuid.UUID, notes *string) error

	// UpdateStatus writes only the status column, plus notes when
	// non-nil. Same column-scoping rationale as UpdateDetails.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes *string) error

	// HasConflict reports whether an active (blocking-status)
	// appointment on the equipment overlaps [start, start+duration)
	// under half-open semantics. excludeID, when non-nil, removes the
	// appointment being updated from consideration.
	HasConflict(ctx context.Context, equipmentID uuid.UUID, start time.Time, durationMinutes int, excludeID *uuid.UUID) (bool, error)

	// LastNumberForPrefix returns the lexicographic maximum
	// appointment_number with the given prefix, or "" when none exists.
	LastNumberForPrefix(ctx context.Context, prefix string) (string, error)

	// ListActiveInRange returns blocking-status appointments on the
	// equipment whose windows fall within [from, to), ordered by start
	// time.
	ListActiveInRange(ctx context.Context, equipmentID uuid.UUID, from, to time.Time) ([]*Appointment, error)

	Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error)

	// InResourceTx runs fn inside a transaction that holds an exclusive
	// per-equipment lock, so that a conflict check and its write are one
	// atomically-visible unit with respect to other admissions on the
	// same equipment. Distinct equipment never contends. Lock
	// acquisition is bounded; on timeout fn is not run and ErrStoreBusy
	// is returned.
	InResourceTx(ctx context.Context, equipmentID uuid.UUID, fn func(ctx context.Context) error) error
}

// PatientDirectory is the slice of the patient registry the booking
// engine needs: existence checks for booking validation.
type PatientDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// EquipmentDirectory reports whether a piece of equipment can accept
// bookings (exists and is active).
type EquipmentDirectory interface {
	Bookable(ctx context.Context, id uuid.UUID) (bool, error)
}
