package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validDraft() TransactionDraft {
	return TransactionDraft{
		Type:        Expense,
		Amount:      decimal.RequireFromString("42.50"),
		Description: "Mercado",
		CategoryID:  "groceries",
		Date:        time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Recurrence:  RecurrenceSpec{Kind: None, Occurrences: 1},
	}
}

func TestRecurrenceSpecValidate(t *testing.T) {
	cases := []struct {
		name string
		spec RecurrenceSpec
		want error
	}{
		{"single occurrence", RecurrenceSpec{Kind: None, Occurrences: 1}, nil},
		{"monthly installment", RecurrenceSpec{Kind: Monthly, Mode: Installment, Occurrences: 6}, nil},
		{"weekly fixed", RecurrenceSpec{Kind: Weekly, Mode: Fixed, Occurrences: 4}, nil},
		{"zero occurrences", RecurrenceSpec{Kind: Monthly, Mode: Fixed, Occurrences: 0}, ErrInvalidOccurrences},
		{"bad kind", RecurrenceSpec{Kind: "daily", Occurrences: 1}, ErrInvalidKind},
		{"multi without mode", RecurrenceSpec{Kind: Monthly, Occurrences: 3}, ErrInvalidMode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.spec.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTransactionDraftValidate(t *testing.T) {
	if err := validDraft().Validate(); err != nil {
		t.Fatalf("valid draft: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*TransactionDraft)
		want   error
	}{
		{"zero date", func(d *TransactionDraft) { d.Date = time.Time{} }, ErrZeroDate},
		{"blank description", func(d *TransactionDraft) { d.Description = "   " }, ErrEmptyDescription},
		{"zero amount", func(d *TransactionDraft) { d.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(d *TransactionDraft) { d.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"expense without category", func(d *TransactionDraft) { d.CategoryID = "" }, ErrMissingCategory},
		{"bad type", func(d *TransactionDraft) { d.Type = "loan" }, ErrInvalidType},
		{"transfer without destination", func(d *TransactionDraft) {
			d.Type = Transfer
			d.TransferToID = ""
		}, ErrMissingTransferTo},
		{"transfer to same account", func(d *TransactionDraft) {
			d.Type = Transfer
			d.AccountID = "checking"
			d.TransferToID = "checking"
		}, ErrSameAccountTransfer},
		{"bad recurrence", func(d *TransactionDraft) {
			d.Recurrence = RecurrenceSpec{Kind: Monthly, Occurrences: 0}
		}, ErrInvalidOccurrences},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDraft()
			tc.mutate(&d)
			if err := d.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCardValidate(t *testing.T) {
	if err := (Card{ID: "nubank", ClosingDay: 4}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, day := range []int{0, 32, -1} {
		if err := (Card{ID: "x", ClosingDay: day}).Validate(); !errors.Is(err, ErrInvalidClosingDay) {
			t.Fatalf("day %d: expected ErrInvalidClosingDay, got %v", day, err)
		}
	}
}

func TestCardDirectory(t *testing.T) {
	dir := CardDirectory{"nubank": {ID: "nubank", ClosingDay: 4}}

	card, err := dir.Card(context.Background(), "nubank")
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	if card.ClosingDay != 4 {
		t.Errorf("ClosingDay = %d", card.ClosingDay)
	}

	if _, err := dir.Card(context.Background(), "visa"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestOccurrenceHelpers(t *testing.T) {
	occ := TransactionOccurrence{}
	if occ.HasSeries() || occ.HasCard() {
		t.Error("empty occurrence should have no series or card")
	}
	occ.SeriesID = "s1"
	occ.CardID = "nubank"
	if !occ.HasSeries() || !occ.HasCard() {
		t.Error("helpers should report set ids")
	}
}
