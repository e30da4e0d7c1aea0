package scheduling

import "time"

// Interval is a half-open busy window [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is one bookable candidate window offered to callers.
type Slot struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

// FreeSlots partitions the operating window [open, close) into
// consecutive candidate slots of slotDuration anchored at open, and
// returns those that do not overlap any busy interval. Anchoring the
// grid to the window open keeps slot boundaries stable across calls
// even as bookings change.
//
// The result is advisory: no lock is held, and a returned slot may be
// taken by the time a booking for it is submitted. Final admission
// authority rests with the conflict check inside the booking
// transaction.
func FreeSlots(open, close time.Time, slotDuration time.Duration, busy []Interval) []Slot {
	slots := make([]Slot, 0)
	if slotDuration <= 0 || !close.After(open) {
		return slots
	}
	for start := open; !start.Add(slotDuration).After(close); start = start.Add(slotDuration) {
		end := start.Add(slotDuration)
		blocked := false
		for _, b := range busy {
			if Overlaps(start, end, b.Start, b.End) {
				blocked = true
				break
			}
		}
		if !blocked {
			slots = append(slots, Slot{
				StartTime:       start,
				EndTime:         end,
				DurationMinutes: int(slotDuration / time.Minute),
			})
		}
	}
	return slots
}

// ClinicHours describes the daily operating window of the clinic.
type ClinicHours struct {
	OpenHour  int
	CloseHour int
	Location  *time.Location
}

// Window returns the operating window for day's calendar date, in the
// clinic's location. The date is read off day as given rather than
// re-zoned: a requested "2026-03-10" must stay March 10 even when the
// clinic sits west of the caller's zone.
func (h ClinicHours) Window(day time.Time) (time.Time, time.Time) {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	open := time.Date(y, m, d, h.OpenHour, 0, 0, 0, loc)
	close := time.Date(y, m, d, h.CloseHour, 0, 0, 0, loc)
	return open, close
}

// DayBounds returns the [midnight, midnight+24h) range for day's
// calendar date, used to fetch that day's bookings.
func (h ClinicHours) DayBounds(day time.Time) (time.Time, time.Time) {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}
