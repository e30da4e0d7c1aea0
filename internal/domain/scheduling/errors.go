package scheduling

import (
	"errors"
	"fmt"
)

// Error taxonomy for the booking engine. Handlers translate these into
// HTTP statuses; everything else surfaces as an internal error.
var (
	// ErrNotFound: the referenced appointment does not exist.
	ErrNotFound = errors.New("appointment not found")

	// ErrPatientNotFound: the booking references an unknown patient.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrSlotConflict: admitting the booking would double-book its
	// equipment (half-open interval overlap with an active appointment).
	ErrSlotConflict = errors.New("time slot conflict")

	// ErrInvalidStatus: the status value is not a recognized state.
	ErrInvalidStatus = errors.New("invalid appointment status")

	// ErrInvalidTransition: the state machine forbids the requested
	// status change (e.g. out of a terminal state).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateNumber: another writer claimed the issued appointment
	// number first. Retryable; the coordinator re-issues a bounded
	// number of times before giving up.
	ErrDuplicateNumber = errors.New("appointment number already taken")

	// ErrSequenceExhausted: the 4-digit daily sequence ran out. Not
	// retryable.
	ErrSequenceExhausted = errors.New("daily appointment sequence exhausted")

	// ErrStoreBusy: lock wait timed out or the transaction was aborted
	// on a write conflict. Safe to retry with backoff.
	ErrStoreBusy = errors.New("scheduling store busy")

	// ErrValidation wraps all malformed-input failures.
	ErrValidation = errors.New("invalid input")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
