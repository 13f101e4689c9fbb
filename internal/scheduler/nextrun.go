package scheduler

import (
	"fmt"
	"time"

	domainErrors "github.com/perkwell/payout/internal/domain/errors"
	"github.com/perkwell/payout/internal/domain/model"
)

// NextRunAfter derives the next due time of a schedule strictly after
// now, from its frequency, day fields and time-of-day.
func NextRunAfter(s *model.SettlementSchedule, now time.Time) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(s.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	at := func(day time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
	}

	switch s.Frequency {
	case model.FrequencyDaily:
		next := at(now)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil

	case model.FrequencyWeekly:
		daysAhead := (int(s.DayOfWeek) - int(now.Weekday()) + 7) % 7
		next := at(now.AddDate(0, 0, daysAhead))
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next, nil

	case model.FrequencyMonthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 28 {
			return time.Time{}, fmt.Errorf("day of month %d: %w", s.DayOfMonth, domainErrors.ErrScheduleMalformed)
		}
		next := time.Date(now.Year(), now.Month(), s.DayOfMonth, hour, minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 1, 0)
		}
		return next, nil

	default:
		return time.Time{}, fmt.Errorf("frequency %q: %w", s.Frequency, domainErrors.ErrScheduleMalformed)
	}
}

func parseTimeOfDay(tod string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", tod)
	if err != nil {
		return 0, 0, fmt.Errorf("time of day %q: %w", tod, domainErrors.ErrScheduleMalformed)
	}
	return t.Hour(), t.Minute(), nil
}
