// Package datemath provides the pure date arithmetic the recurrence and
// billing logic is built on: interval stepping, midnight normalization and
// statement-cycle resolution.
package datemath

import (
	"time"

	"contas/internal/core"
)

// Advance returns base moved forward by step intervals of the given kind.
// step 0 returns base unchanged. Monthly and yearly stepping use calendar
// arithmetic, so day-of-month may roll over (Jan 31 + 1 month = Mar 3
// per time.AddDate); no clamping is applied.
func Advance(base time.Time, kind core.RecurrenceKind, step int) time.Time {
	if step == 0 {
		return base
	}
	switch kind {
	case core.Weekly:
		return base.AddDate(0, 0, 7*step)
	case core.Biweekly:
		return base.AddDate(0, 0, 14*step)
	case core.Monthly:
		return base.AddDate(0, step, 0)
	case core.Yearly:
		return base.AddDate(step, 0, 0)
	default:
		return base
	}
}

// Midnight truncates t to the start of its day, preserving the location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ResolveBillingCycle returns the month and year of the next available
// statement for a card with the given closing day. A transaction posted
// after the statement closes lands in the next month's bill, rolling the
// year on December.
func ResolveBillingCycle(today time.Time, closingDay int) (month, year int) {
	month = int(today.Month())
	year = today.Year()
	if today.Day() > closingDay {
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return month, year
}
