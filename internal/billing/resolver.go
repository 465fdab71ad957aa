// Package billing classifies card-linked occurrences against the card's
// statement calendar.
package billing

import (
	"time"

	"contas/internal/core"
	"contas/internal/datemath"
)

// IsFutureInstallment reports whether the occurrence belongs to a statement
// cycle strictly later than the next available one for the given card. It is
// a pure predicate, safe to call on every render.
//
// An occurrence with no card is never future. An anticipated occurrence is
// never future again: anticipation is terminal for this classification.
func IsFutureInstallment(occ core.TransactionOccurrence, card *core.Card, today time.Time) bool {
	if card == nil || !occ.HasCard() {
		return false
	}
	if occ.AnticipatedFrom != nil {
		return false
	}

	month, year := occ.CycleMonth, occ.CycleYear
	if month == 0 || year == 0 {
		month = int(today.Month())
		year = today.Year()
	}

	targetMonth, targetYear := datemath.ResolveBillingCycle(today, card.ClosingDay)

	if year != targetYear {
		return year > targetYear
	}
	return month > targetMonth
}
