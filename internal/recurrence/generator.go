// Package recurrence expands a transaction draft into its persisted
// occurrences: a single record, a fixed repetition, or an installment plan
// with the total split across the series.
package recurrence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"contas/internal/core"
	"contas/internal/datemath"
)

// Generator materializes drafts into occurrences and persists them through
// the transaction store. Persistence is sequential and best-effort: a failed
// occurrence never aborts the rest of the series.
type Generator struct {
	store core.TransactionStore
	now   func() time.Time
}

func NewGenerator(store core.TransactionStore) *Generator {
	return &Generator{store: store, now: time.Now}
}

// Result reports the outcome of a generation. CreatedCount below Requested
// means a partial series was persisted; the caller decides user messaging.
type Result struct {
	SeriesID     string
	CreatedIDs   []string
	CreatedCount int
	Requested    int
}

// Partial reports whether some occurrences failed to persist.
func (r Result) Partial() bool {
	return r.CreatedCount < r.Requested
}

// Generate validates the draft, expands it into N occurrences and persists
// them one at a time. Validation failures are returned before anything is
// written. Occurrence dates follow datemath.Advance from the draft date;
// installment mode divides the total equally across occurrences with no
// cent-rounding correction.
func (g *Generator) Generate(ctx context.Context, draft core.TransactionDraft) (Result, error) {
	if err := draft.Validate(); err != nil {
		return Result{}, fmt.Errorf("validate draft: %w", err)
	}

	n := draft.Recurrence.Occurrences
	occurrences := g.expand(draft, n)

	res := Result{Requested: n}
	if n > 1 {
		res.SeriesID = occurrences[0].SeriesID
	}

	for i := range occurrences {
		id, err := g.store.Create(ctx, occurrences[i])
		if err != nil {
			slog.ErrorContext(ctx, "Failed to persist occurrence, continuing series",
				"series_id", res.SeriesID,
				"installment", occurrences[i].InstallmentCurrent,
				"of", n,
				"error", err)
			continue
		}
		res.CreatedIDs = append(res.CreatedIDs, id)
		res.CreatedCount++
	}

	if res.Partial() {
		slog.WarnContext(ctx, "Series persisted partially",
			"series_id", res.SeriesID,
			"created", res.CreatedCount,
			"requested", n)
	}

	return res, nil
}

// expand assigns dates, amounts and installment numbering before any write
// starts, so stored installmentCurrent ordering never depends on persistence
// order.
func (g *Generator) expand(draft core.TransactionDraft, n int) []core.TransactionOccurrence {
	today := datemath.Midnight(g.now())

	amount := draft.Amount
	if n > 1 && draft.Recurrence.Mode == core.Installment {
		amount = draft.Amount.Div(decimal.NewFromInt(int64(n)))
	}

	var seriesID string
	if n > 1 {
		seriesID = uuid.NewString()
	}

	occurrences := make([]core.TransactionOccurrence, n)
	for i := 0; i < n; i++ {
		occDate := datemath.Advance(draft.Date, draft.Recurrence.Kind, i)

		status := core.StatusCompleted
		if datemath.Midnight(occDate).After(today) {
			status = core.StatusPending
		}

		occ := core.TransactionOccurrence{
			Type:         draft.Type,
			Amount:       amount,
			Description:  draft.Description,
			CategoryID:   draft.CategoryID,
			AccountID:    draft.AccountID,
			CardID:       draft.CardID,
			TransferToID: draft.TransferToID,
			Date:         occDate,
			CycleMonth:   int(occDate.Month()),
			CycleYear:    occDate.Year(),
			Status:       status,
			SeriesID:     seriesID,
		}
		if n > 1 {
			occ.InstallmentCurrent = i + 1
			occ.InstallmentTotal = n
		}
		occurrences[i] = occ
	}
	return occurrences
}
