package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of appointment lifecycle states.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusArrived    Status = "arrived"
	StatusCheckedIn  Status = "checked_in"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// ParseStatus converts a request string into a Status. Unrecognized
// values return ErrInvalidStatus.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// transitions is the static state machine over Status. A status maps to
// the set of states it may move to; terminal states map to an empty set.
var transitions = map[Status]map[Status]bool{
	StatusScheduled: {
		StatusConfirmed: true, StatusArrived: true, StatusCheckedIn: true,
		StatusInProgress: true, StatusCancelled: true, StatusNoShow: true,
	},
	StatusConfirmed: {
		StatusArrived: true, StatusCheckedIn: true, StatusInProgress: true,
		StatusCancelled: true, StatusNoShow: true,
	},
	StatusArrived: {
		StatusCheckedIn: true, StatusInProgress: true,
		StatusCancelled: true, StatusNoShow: true,
	},
	StatusCheckedIn: {
		StatusInProgress: true, StatusCancelled: true, StatusNoShow: true,
	},
	StatusInProgress: {
		StatusCompleted: true, StatusCancelled: true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the state machine permits moving from
// s to next.
func (s Status) CanTransitionTo(next Status) bool {
	return transitions[s][next]
}

// Blocking reports whether an appointment in this status occupies its
// equipment for conflict purposes. Cancelled and completed appointments
// release their window; no_show keeps it until staff reconcile the day.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusCompleted
}

// Appointment maps to the appointment table. An appointment books one
// piece of diagnostic equipment for a patient over a time window.
type Appointment struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	AppointmentNumber string     `db:"appointment_number" json:"appointment_number"`
	EquipmentID       uuid.UUID  `db:"equipment_id" json:"equipment_id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	OrderID           *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	TechnologistID    *uuid.UUID `db:"technologist_id" json:"technologist_id,omitempty"`
	StartTime         time.Time  `db:"start_time" json:"start_time"`
	DurationMinutes   int        `db:"duration_minutes" json:"duration_minutes"`
	Status            Status     `db:"status" json:"status"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy         *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// EndTime returns the exclusive end of the appointment's window.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
