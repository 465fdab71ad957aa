// Package series applies bulk mutations to already-persisted recurring
// transactions: shifting a whole series across months and anticipating a
// future installment into an earlier statement.
package series

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/core"
	"contas/internal/datemath"
)

// AnticipationDescriptionPrefix labels the offsetting discount record created
// alongside an anticipation.
const AnticipationDescriptionPrefix = "Desconto antecipação - "

var (
	ErrSeriesNotFound = errors.New("no occurrences found for series")
	ErrZeroMonths     = errors.New("months to move must be non-zero")
)

// Mutator operates on persisted occurrences through the transaction store.
type Mutator struct {
	store core.TransactionStore
	now   func() time.Time
}

func NewMutator(store core.TransactionStore) *Mutator {
	return &Mutator{store: store, now: time.Now}
}

// MoveSeriesMonth shifts every occurrence of the series by the given number
// of calendar months. The operation is not transactional across the series:
// a failed update leaves earlier occurrences already moved, and the error
// tells the caller to retry the whole operation. Re-running a move on an
// already-moved series double-shifts it; guarding against that is the
// caller's responsibility.
func (m *Mutator) MoveSeriesMonth(ctx context.Context, seriesID string, months int) error {
	if months == 0 {
		return ErrZeroMonths
	}

	occurrences, err := m.store.QueryBySeries(ctx, seriesID)
	if err != nil {
		return fmt.Errorf("query series %s: %w", seriesID, err)
	}
	if len(occurrences) == 0 {
		return fmt.Errorf("series %s: %w", seriesID, ErrSeriesNotFound)
	}

	for _, occ := range occurrences {
		occ.Date = datemath.Advance(occ.Date, core.Monthly, months)
		if occ.CycleMonth != 0 {
			occ.CycleMonth = int(occ.Date.Month())
			occ.CycleYear = occ.Date.Year()
		}
		if err := m.store.Update(ctx, occ); err != nil {
			return fmt.Errorf("update occurrence %s: %w", occ.ID, err)
		}
	}

	slog.InfoContext(ctx, "Series moved",
		"series_id", seriesID,
		"months", months,
		"occurrences", len(occurrences))

	return nil
}

// AnticipateResult reports the outcome of an anticipation. The discount
// transaction id is empty when no discount was supplied or when the
// best-effort discount write failed.
type AnticipateResult struct {
	DiscountTransactionID string
}

// AnticipateInstallment reassigns one occurrence into the target statement
// cycle, stamping where it came from. A positive discount additionally
// creates an offsetting record linked back to the occurrence. The two writes
// are sequential with no rollback: if the discount write fails after the
// anticipation succeeded, the anticipation stands and the discount entry is
// simply missing.
func (m *Mutator) AnticipateInstallment(ctx context.Context, occurrenceID string, targetMonth, targetYear int, discount decimal.Decimal) (AnticipateResult, error) {
	occ, err := m.store.Get(ctx, occurrenceID)
	if err != nil {
		return AnticipateResult{}, fmt.Errorf("get occurrence %s: %w", occurrenceID, err)
	}

	now := m.now()

	origMonth, origYear := occ.CycleMonth, occ.CycleYear
	if origMonth == 0 || origYear == 0 {
		origMonth = int(occ.Date.Month())
		origYear = occ.Date.Year()
	}

	occ.AnticipatedFrom = &core.CycleStamp{Month: origMonth, Year: origYear, CapturedAt: now}
	occ.CycleMonth = targetMonth
	occ.CycleYear = targetYear
	if discount.IsPositive() {
		occ.AnticipationDiscount = discount
	}

	if err := m.store.Update(ctx, occ); err != nil {
		return AnticipateResult{}, fmt.Errorf("update occurrence %s: %w", occurrenceID, err)
	}

	slog.InfoContext(ctx, "Installment anticipated",
		"occurrence_id", occ.ID,
		"from_month", origMonth,
		"from_year", origYear,
		"to_month", targetMonth,
		"to_year", targetYear)

	if !discount.IsPositive() {
		return AnticipateResult{}, nil
	}

	offset := core.TransactionOccurrence{
		Type:                 offsetType(occ.Type),
		Amount:               discount,
		Description:          AnticipationDescriptionPrefix + occ.Description,
		CategoryID:           occ.CategoryID,
		AccountID:            occ.AccountID,
		CardID:               occ.CardID,
		Date:                 now,
		CycleMonth:           targetMonth,
		CycleYear:            targetYear,
		Status:               core.StatusCompleted,
		RelatedTransactionID: occ.ID,
	}

	discountID, err := m.store.Create(ctx, offset)
	if err != nil {
		// Best effort: the anticipation already succeeded.
		slog.ErrorContext(ctx, "Failed to persist anticipation discount entry",
			"occurrence_id", occ.ID,
			"discount", discount.String(),
			"error", err)
		return AnticipateResult{}, nil
	}

	return AnticipateResult{DiscountTransactionID: discountID}, nil
}

// offsetType returns the transaction type that offsets the original: a
// discount on an expense comes back as income.
func offsetType(t core.TransactionType) core.TransactionType {
	if t == core.Expense {
		return core.Income
	}
	return core.Expense
}

// DeleteFromInstallment removes every occurrence of the series whose
// installment number is at or past the given index. Deletion failures stop
// the operation so the caller can retry.
func (m *Mutator) DeleteFromInstallment(ctx context.Context, seriesID string, fromInstallment int) (int, error) {
	occurrences, err := m.store.QueryBySeries(ctx, seriesID)
	if err != nil {
		return 0, fmt.Errorf("query series %s: %w", seriesID, err)
	}
	if len(occurrences) == 0 {
		return 0, fmt.Errorf("series %s: %w", seriesID, ErrSeriesNotFound)
	}

	deleted := 0
	for _, occ := range occurrences {
		if occ.InstallmentCurrent < fromInstallment {
			continue
		}
		if err := m.store.Delete(ctx, occ.ID); err != nil {
			return deleted, fmt.Errorf("delete occurrence %s: %w", occ.ID, err)
		}
		deleted++
	}

	slog.InfoContext(ctx, "Series tail deleted",
		"series_id", seriesID,
		"from_installment", fromInstallment,
		"deleted", deleted)

	return deleted, nil
}
