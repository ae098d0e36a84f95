// Package recurrence computes the next occurrence of a repeating event.
//
// Everything here is pure: results depend only on the rule and the start of
// the current occurrence, and times keep the location of that start.
package recurrence

import (
	"slices"
	"time"

	"ccce-notify/internal/notification/domain"
)

const (
	// weeklyScanDays bounds the forward search for a matching weekday
	weeklyScanDays = 28
	// monthlyScanMonths bounds the forward search for a month containing the target day
	monthlyScanMonths = 12
)

// Next returns the start of the occurrence following current, or false when
// the rule does not repeat or no occurrence can be found.
func Next(rule *domain.RecurrenceRule, current time.Time) (time.Time, bool) {
	if rule == nil {
		return time.Time{}, false
	}

	switch rule.Type {
	case domain.RecurrenceIntervalDays:
		return current.AddDate(0, 0, rule.IntervalOrDefault()), true
	case domain.RecurrenceWeekly:
		if len(rule.Days) > 0 {
			return nextWeekday(rule.Days, current)
		}
		return current.AddDate(0, 0, 7*rule.IntervalOrDefault()), true
	case domain.RecurrenceMonthly:
		return nextMonthly(rule.IntervalOrDefault(), current)
	case domain.RecurrenceNever:
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// nextWeekday scans the days after current for the first weekday in days.
// Weekdays are numbered from Sunday = 0.
func nextWeekday(days []int, current time.Time) (time.Time, bool) {
	for i := 1; i <= weeklyScanDays; i++ {
		candidate := current.AddDate(0, 0, i)
		if slices.Contains(days, int(candidate.Weekday())) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// nextMonthly advances step months and pins the day of month to step as well.
// The rule has a single interval field, so it doubles as the day of month.
func nextMonthly(step int, current time.Time) (time.Time, bool) {
	day := step

	shifted := addMonths(current, step)
	next, ok := withDay(shifted, day)
	if ok && !next.After(current) {
		shifted = addMonths(next, step)
		next, ok = withDay(shifted, day)
	}
	if ok {
		return next, true
	}

	// The target day does not exist in that month; take the first later month that has it.
	for i := 1; i <= monthlyScanMonths; i++ {
		month := time.Date(shifted.Year(), shifted.Month()+time.Month(i), 1,
			shifted.Hour(), shifted.Minute(), shifted.Second(), shifted.Nanosecond(), shifted.Location())
		if next, ok := withDay(month, day); ok {
			return next, true
		}
	}
	return time.Time{}, false
}

// addMonths moves t by n months keeping its day, letting the day roll over into
// the following month when it is past the end (Jan 31 + 1 month is Mar 2 in a leap year).
func addMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// withDay sets the day of month of t, failing when the month is too short.
func withDay(t time.Time, day int) (time.Time, bool) {
	if day < 1 || day > daysIn(t.Year(), t.Month()) {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
