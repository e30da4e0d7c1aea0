package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	numberPrefix     = "APT"
	numberSeqDigits  = 4
	maxDailySequence = 9999
)

// NumberPrefix returns the date-scoped prefix for appointment numbers
// issued on the given day, e.g. "APT20260901".
func NumberPrefix(day time.Time) string {
	return numberPrefix + day.Format("20060102")
}

// NextNumber computes the appointment number that follows last for the
// given day. last is the lexicographic maximum already persisted for
// the day's prefix, or empty when the day has no appointments yet.
// Because the sequence suffix is zero-padded, lexicographic order on
// the fixed-width number is numeric order on the sequence.
//
// Issuance reads-then-writes, so two concurrent creations can compute
// the same number; the unique constraint on appointment_number turns
// the loser's insert into ErrDuplicateNumber and the coordinator
// retries.
func NextNumber(last string, day time.Time) (string, error) {
	prefix := NumberPrefix(day)
	seq := 1
	if last != "" {
		if !strings.HasPrefix(last, prefix) || len(last) != len(prefix)+numberSeqDigits {
			return "", fmt.Errorf("malformed appointment number %q for prefix %s", last, prefix)
		}
		n, err := strconv.Atoi(last[len(prefix):])
		if err != nil {
			return "", fmt.Errorf("malformed appointment number %q: %w", last, err)
		}
		seq = n + 1
	}
	if seq > maxDailySequence {
		return "", ErrSequenceExhausted
	}
	return fmt.Sprintf("%s%0*d", prefix, numberSeqDigits, seq), nil
}
