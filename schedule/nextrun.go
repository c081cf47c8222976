package schedule

import (
	"strings"
	"time"

	"github.com/quantitva/market-intel/errors"
)

// Frequency tags accepted by NextRun. Matching is case-insensitive.
const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

// IsValidFrequency reports whether the tag is a recognized recurrence.
func IsValidFrequency(frequency string) bool {
	switch strings.ToLower(frequency) {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// NextRun returns the instant a schedule should run next, given the base
// instant of its latest run and its recurrence tag.
//
// Monthly advances one calendar month, preserving the day-of-month and
// clamping to the last valid day of the target month (Jan 31 -> Feb 28,
// or Feb 29 in leap years). Fixed 30-day arithmetic drifts over many
// cycles and is deliberately not used.
//
// An unrecognized frequency returns ErrInvalidFrequency; callers must not
// silently fall back to a default.
func NextRun(base time.Time, frequency string) (time.Time, error) {
	switch strings.ToLower(frequency) {
	case FrequencyDaily:
		return base.AddDate(0, 0, 1), nil
	case FrequencyWeekly:
		return base.AddDate(0, 0, 7), nil
	case FrequencyBiweekly:
		return base.AddDate(0, 0, 14), nil
	case FrequencyMonthly:
		return addCalendarMonth(base), nil
	default:
		return time.Time{}, errors.Wrapf(errors.ErrInvalidFrequency, "unknown frequency: %s", frequency)
	}
}

// addCalendarMonth advances one calendar month with day-of-month clamping.
// time.Time.AddDate normalizes overflow (Jan 31 + 1 month = Mar 2/3), which
// is exactly the drift this avoids.
func addCalendarMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Day 0 of month+2 normalizes to the last day of month+1.
	lastDay := time.Date(year, month+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(year, month+1, day, hour, min, sec, t.Nanosecond(), t.Location())
}
