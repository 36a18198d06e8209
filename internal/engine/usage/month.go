package usage

import (
	"errors"
	"time"
)

var (
	// ErrNotUTC rejects ambiguous local-time month boundaries. Quota
	// correctness depends on the window being an exact UTC calendar
	// month, so callers must pass time.UTC instants.
	ErrNotUTC = errors.New("month start must be in UTC")

	ErrInvalidMonth = errors.New("month must be in YYYY-MM format")
)

// MonthStart returns the first instant of now's UTC calendar month.
func MonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseMonth parses a YYYY-MM string into the first UTC instant of that
// month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// monthWindow computes [start, end) for the calendar month beginning at
// monthStart. The end is the first instant of the next month, with the
// December to January year rollover handled explicitly; no 30/31-day
// approximation.
func monthWindow(monthStart time.Time) (time.Time, time.Time, error) {
	if monthStart.Location() != time.UTC {
		return time.Time{}, time.Time{}, ErrNotUTC
	}
	year, month := monthStart.Year(), monthStart.Month()
	var end time.Time
	if month == time.December {
		end = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	} else {
		end = time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	}
	return monthStart, end, nil
}
