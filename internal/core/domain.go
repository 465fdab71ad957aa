package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense  TransactionType = "expense"
	Income   TransactionType = "income"
	Transfer TransactionType = "transfer"
)

const (
	None     RecurrenceKind = "none"
	Weekly   RecurrenceKind = "weekly"
	Biweekly RecurrenceKind = "biweekly"
	Monthly  RecurrenceKind = "monthly"
	Yearly   RecurrenceKind = "yearly"
)

const (
	Installment RecurrenceMode = "installment"
	Fixed       RecurrenceMode = "fixed"
)

const (
	PayAccount    PaymentMethod = "account"
	PayCreditCard PaymentMethod = "creditCard"
)

const (
	StatusPending   OccurrenceStatus = "pending"
	StatusCompleted OccurrenceStatus = "completed"
)

type (
	TransactionType  string
	RecurrenceKind   string
	RecurrenceMode   string
	PaymentMethod    string
	OccurrenceStatus string

	// RecurrenceSpec describes how a draft is spread over time.
	RecurrenceSpec struct {
		Kind        RecurrenceKind
		Mode        RecurrenceMode
		Occurrences int
	}

	// TransactionDraft is the user-submitted input before expansion.
	TransactionDraft struct {
		Type         TransactionType
		Amount       decimal.Decimal
		Description  string
		CategoryID   string
		AccountID    string
		CardID       string
		TransferToID string
		Date         time.Time
		Recurrence   RecurrenceSpec
	}

	// CycleStamp records the statement cycle an occurrence was moved out of.
	CycleStamp struct {
		Month      int
		Year       int
		CapturedAt time.Time
	}

	// TransactionOccurrence is one persisted record of a (possibly recurring)
	// transaction. CycleMonth/CycleYear are zero when the occurrence carries
	// no explicit statement cycle.
	TransactionOccurrence struct {
		ID                   string
		SeriesID             string
		Type                 TransactionType
		Amount               decimal.Decimal
		Description          string
		CategoryID           string
		AccountID            string
		CardID               string
		TransferToID         string
		Date                 time.Time
		CycleMonth           int
		CycleYear            int
		Status               OccurrenceStatus
		InstallmentCurrent   int
		InstallmentTotal     int
		AnticipatedFrom      *CycleStamp
		AnticipationDiscount decimal.Decimal
		RelatedTransactionID string
	}

	// Card carries the statement cut-off day used for billing-cycle math.
	Card struct {
		ID         string
		ClosingDay int
	}

	// SuggestionPattern is a learned description→category association,
	// keyed by its normalized description.
	SuggestionPattern struct {
		NormalizedDescription string
		CategoryID            string
		AccountID             string
		CreditCardID          string
		PaymentMethod         PaymentMethod
		Count                 int64
		LastUsedAt            time.Time
	}
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrEmptyDescription    = errors.New("empty description")
	ErrMissingCategory     = errors.New("category required for expense or income")
	ErrSameAccountTransfer = errors.New("transfer source and destination must differ")
	ErrMissingTransferTo   = errors.New("transfer destination required")
	ErrInvalidOccurrences  = errors.New("occurrences must be at least 1")
	ErrInvalidKind         = errors.New("invalid recurrence kind")
	ErrInvalidMode         = errors.New("invalid recurrence mode")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidClosingDay   = errors.New("closing day must be between 1 and 31")
	ErrZeroDate            = errors.New("date cannot be zero")
)

func (s RecurrenceSpec) Validate() error {
	if s.Occurrences < 1 {
		return ErrInvalidOccurrences
	}
	switch s.Kind {
	case None, Weekly, Biweekly, Monthly, Yearly:
	default:
		return ErrInvalidKind
	}
	if s.Occurrences > 1 {
		switch s.Mode {
		case Installment, Fixed:
		default:
			return ErrInvalidMode
		}
	}
	return nil
}

func (d TransactionDraft) Validate() error {
	if d.Date.IsZero() {
		return ErrZeroDate
	}
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	switch d.Type {
	case Expense, Income:
		if d.CategoryID == "" {
			return ErrMissingCategory
		}
	case Transfer:
		if d.TransferToID == "" {
			return ErrMissingTransferTo
		}
		if d.AccountID != "" && d.AccountID == d.TransferToID {
			return ErrSameAccountTransfer
		}
	default:
		return ErrInvalidType
	}
	return d.Recurrence.Validate()
}

func (c Card) Validate() error {
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidClosingDay
	}
	return nil
}

// HasSeries reports whether the occurrence belongs to a multi-occurrence series.
func (o TransactionOccurrence) HasSeries() bool {
	return o.SeriesID != ""
}

// HasCard reports whether the occurrence is linked to a credit card.
func (o TransactionOccurrence) HasCard() bool {
	return o.CardID != ""
}
