package series

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/core"
)

type fakeStore struct {
	byID         map[string]core.TransactionOccurrence
	updateFailID string
	createFails  bool
	nextID       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]core.TransactionOccurrence{}}
}

func (f *fakeStore) Create(_ context.Context, occ core.TransactionOccurrence) (string, error) {
	if f.createFails {
		return "", errors.New("store unavailable")
	}
	f.nextID++
	occ.ID = fmt.Sprintf("tx-%d", f.nextID)
	f.byID[occ.ID] = occ
	return occ.ID, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (core.TransactionOccurrence, error) {
	occ, ok := f.byID[id]
	if !ok {
		return core.TransactionOccurrence{}, errors.New("not found")
	}
	return occ, nil
}

func (f *fakeStore) Update(_ context.Context, occ core.TransactionOccurrence) error {
	if occ.ID == f.updateFailID {
		return errors.New("store unavailable")
	}
	if _, ok := f.byID[occ.ID]; !ok {
		return errors.New("not found")
	}
	f.byID[occ.ID] = occ
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return errors.New("not found")
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeStore) QueryBySeries(_ context.Context, seriesID string) ([]core.TransactionOccurrence, error) {
	var out []core.TransactionOccurrence
	for i := 1; i <= f.nextID; i++ {
		if occ, ok := f.byID[fmt.Sprintf("tx-%d", i)]; ok && occ.SeriesID == seriesID {
			out = append(out, occ)
		}
	}
	return out, nil
}

func (f *fakeStore) CountByCategory(context.Context, string) (int64, error) { return 0, nil }

func seedSeries(store *fakeStore, seriesID string, n int, start time.Time) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id, _ := store.Create(context.Background(), core.TransactionOccurrence{
			SeriesID:           seriesID,
			Type:               core.Expense,
			Amount:             decimal.NewFromInt(100),
			Description:        "Notebook",
			CategoryID:         "cat-shopping",
			CardID:             "card-1",
			Date:               start.AddDate(0, i, 0),
			CycleMonth:         int(start.AddDate(0, i, 0).Month()),
			CycleYear:          start.AddDate(0, i, 0).Year(),
			Status:             core.StatusPending,
			InstallmentCurrent: i + 1,
			InstallmentTotal:   n,
		})
		ids[i] = id
	}
	return ids
}

func TestMoveSeriesMonthBack(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	ids := seedSeries(store, "s-1", 3, start)

	m := NewMutator(store)
	if err := m.MoveSeriesMonth(context.Background(), "s-1", -1); err != nil {
		t.Fatalf("MoveSeriesMonth: %v", err)
	}

	for i, id := range ids {
		occ := store.byID[id]
		want := start.AddDate(0, i-1, 0)
		if !occ.Date.Equal(want) {
			t.Fatalf("occurrence %d date %v, want %v", i, occ.Date, want)
		}
		if occ.SeriesID != "s-1" || occ.InstallmentCurrent != i+1 || occ.InstallmentTotal != 3 {
			t.Fatalf("occurrence %d lost series fields: %+v", i, occ)
		}
		if occ.CycleMonth != int(want.Month()) || occ.CycleYear != want.Year() {
			t.Fatalf("occurrence %d cycle %d/%d not refreshed", i, occ.CycleMonth, occ.CycleYear)
		}
	}
}

func TestMoveSeriesMonthForward(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	ids := seedSeries(store, "s-1", 2, start)

	m := NewMutator(store)
	if err := m.MoveSeriesMonth(context.Background(), "s-1", 1); err != nil {
		t.Fatalf("MoveSeriesMonth: %v", err)
	}

	// Second occurrence crosses the year boundary.
	occ := store.byID[ids[1]]
	if occ.CycleMonth != 1 || occ.CycleYear != 2026 {
		t.Fatalf("expected cycle 1/2026, got %d/%d", occ.CycleMonth, occ.CycleYear)
	}
}

func TestMoveSeriesMonthValidation(t *testing.T) {
	store := newFakeStore()
	m := NewMutator(store)

	if err := m.MoveSeriesMonth(context.Background(), "s-1", 0); !errors.Is(err, ErrZeroMonths) {
		t.Fatalf("expected ErrZeroMonths, got %v", err)
	}
	if err := m.MoveSeriesMonth(context.Background(), "missing", 1); !errors.Is(err, ErrSeriesNotFound) {
		t.Fatalf("expected ErrSeriesNotFound, got %v", err)
	}
}

func TestMoveSeriesMonthStopsOnUpdateFailure(t *testing.T) {
	store := newFakeStore()
	ids := seedSeries(store, "s-1", 3, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC))
	store.updateFailID = ids[1]

	m := NewMutator(store)
	err := m.MoveSeriesMonth(context.Background(), "s-1", 1)
	if err == nil {
		t.Fatal("expected error when an update fails")
	}
	// First occurrence was already moved; the series is partial and the
	// caller is expected to retry.
	if store.byID[ids[0]].CycleMonth != 5 {
		t.Fatal("first occurrence should have moved before the failure")
	}
	if store.byID[ids[2]].CycleMonth != 6 {
		// seeded at month 6, untouched
		t.Fatal("occurrence after the failure must be untouched")
	}
}

func TestAnticipateInstallmentWithDiscount(t *testing.T) {
	store := newFakeStore()
	ids := seedSeries(store, "s-1", 3, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	target := ids[2] // cycle 8/2025

	now := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)
	m := NewMutator(store)
	m.now = func() time.Time { return now }

	res, err := m.AnticipateInstallment(context.Background(), target, 4, 2025, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("AnticipateInstallment: %v", err)
	}

	occ := store.byID[target]
	if occ.AnticipatedFrom == nil {
		t.Fatal("anticipatedFrom not stamped")
	}
	if occ.AnticipatedFrom.Month != 8 || occ.AnticipatedFrom.Year != 2025 {
		t.Fatalf("anticipatedFrom = %d/%d, want original 8/2025",
			occ.AnticipatedFrom.Month, occ.AnticipatedFrom.Year)
	}
	if occ.CycleMonth != 4 || occ.CycleYear != 2025 {
		t.Fatalf("cycle = %d/%d, want target 4/2025", occ.CycleMonth, occ.CycleYear)
	}
	if !occ.AnticipationDiscount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("discount = %s, want 20", occ.AnticipationDiscount)
	}

	if res.DiscountTransactionID == "" {
		t.Fatal("expected a discount transaction id")
	}
	disc := store.byID[res.DiscountTransactionID]
	if !strings.HasPrefix(disc.Description, AnticipationDescriptionPrefix) {
		t.Fatalf("discount description %q", disc.Description)
	}
	if !strings.Contains(disc.Description, "Notebook") {
		t.Fatalf("discount description must carry the original description, got %q", disc.Description)
	}
	if disc.RelatedTransactionID != target {
		t.Fatalf("discount linked to %q, want %q", disc.RelatedTransactionID, target)
	}
	if disc.Type != core.Income {
		t.Fatalf("expense discount must offset as income, got %s", disc.Type)
	}
	if !disc.Date.Equal(now) {
		t.Fatalf("discount dated %v, want anticipation date %v", disc.Date, now)
	}
}

func TestAnticipateInstallmentWithoutDiscount(t *testing.T) {
	store := newFakeStore()
	ids := seedSeries(store, "s-1", 2, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

	m := NewMutator(store)
	res, err := m.AnticipateInstallment(context.Background(), ids[1], 4, 2025, decimal.Zero)
	if err != nil {
		t.Fatalf("AnticipateInstallment: %v", err)
	}
	if res.DiscountTransactionID != "" {
		t.Fatal("no discount entry expected")
	}
	occ := store.byID[ids[1]]
	if !occ.AnticipationDiscount.IsZero() {
		t.Fatalf("discount recorded without being supplied: %s", occ.AnticipationDiscount)
	}
	if occ.AnticipatedFrom == nil {
		t.Fatal("anticipatedFrom not stamped")
	}
}

func TestAnticipateInstallmentDiscountWriteFailureIsBestEffort(t *testing.T) {
	store := newFakeStore()
	ids := seedSeries(store, "s-1", 2, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	store.createFails = true

	m := NewMutator(store)
	res, err := m.AnticipateInstallment(context.Background(), ids[1], 4, 2025, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("anticipation must still succeed: %v", err)
	}
	if res.DiscountTransactionID != "" {
		t.Fatal("discount id must be empty when its write failed")
	}
	if store.byID[ids[1]].AnticipatedFrom == nil {
		t.Fatal("anticipation itself must have been persisted")
	}
}

func TestDeleteFromInstallment(t *testing.T) {
	store := newFakeStore()
	ids := seedSeries(store, "s-1", 4, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))

	m := NewMutator(store)
	deleted, err := m.DeleteFromInstallment(context.Background(), "s-1", 3)
	if err != nil {
		t.Fatalf("DeleteFromInstallment: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}
	if _, ok := store.byID[ids[0]]; !ok {
		t.Fatal("installment 1 must survive")
	}
	if _, ok := store.byID[ids[3]]; ok {
		t.Fatal("installment 4 must be deleted")
	}
}
