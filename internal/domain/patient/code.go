package patient

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	codePrefix    = "P"
	codeSeqDigits = 6
)

// CodePrefix returns the year-scoped prefix for patient codes issued in
// the given year, e.g. "P26".
func CodePrefix(now time.Time) string {
	return codePrefix + now.Format("06")
}

// NextCode computes the patient code that follows last for the given
// year; last is the lexicographic maximum already persisted, or empty.
func NextCode(last string, now time.Time) (string, error) {
	prefix := CodePrefix(now)
	seq := 1
	if last != "" {
		if !strings.HasPrefix(last, prefix) || len(last) != len(prefix)+codeSeqDigits {
			return "", fmt.Errorf("malformed patient code %q for prefix %s", last, prefix)
		}
		n, err := strconv.Atoi(last[len(prefix):])
		if err != nil {
			return "", fmt.Errorf("malformed patient code %q: %w", last, err)
		}
		seq = n + 1
	}
	return fmt.Sprintf("%s%0*d", prefix, codeSeqDigits, seq), nil
}
