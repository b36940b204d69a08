package services

import (
	"fmt"
	"time"
)

const weekLayout = "2006-01-02"

// MondayFor returns the Monday date (UTC midnight) of the week
// containing the given instant.
func MondayFor(at time.Time) time.Time {
	at = at.UTC()
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func AddWeeks(weekStart time.Time, weeks int) time.Time {
	return weekStart.AddDate(0, 0, weeks*7)
}

func FormatWeek(weekStart time.Time) string {
	return weekStart.Format(weekLayout)
}

// ParseWeekStart parses an ISO week date and verifies the rotation
// weekday alignment.
func ParseWeekStart(value string) (time.Time, error) {
	weekStart, err := time.Parse(weekLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing week start %q: %w", value, ErrInvalidWeek)
	}
	if weekStart.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("week start %s is not a Monday: %w", value, ErrInvalidWeek)
	}
	return weekStart, nil
}

func ensureWeekStart(weekStart time.Time) (time.Time, error) {
	weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, time.UTC)
	if weekStart.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("week start %s is not a Monday: %w", FormatWeek(weekStart), ErrInvalidWeek)
	}
	return weekStart, nil
}

// ensureMutableWeek validates a week targeted by a mutation. Past weeks
// stay writable so late bookkeeping (marking last week done on Tuesday)
// keeps working, but weeks beyond the compensation lookahead are out of
// scheduling range.
func (service *CleaningService) ensureMutableWeek(weekStart time.Time) (time.Time, error) {
	weekStart, err := ensureWeekStart(weekStart)
	if err != nil {
		return time.Time{}, err
	}
	horizon := AddWeeks(MondayFor(service.now()), compensationLookahead)
	if weekStart.After(horizon) {
		return time.Time{}, fmt.Errorf("week %s is beyond the scheduling horizon %s: %w",
			FormatWeek(weekStart), FormatWeek(horizon), ErrInvalidWeek)
	}
	return weekStart, nil
}
