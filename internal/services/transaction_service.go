// Package services wires the recurrence, series and suggestion subsystems
// behind one application-facing API.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/amqp"
	"contas/internal/billing"
	"contas/internal/core"
	"contas/internal/recurrence"
	"contas/internal/series"
	"contas/internal/suggest"
)

// LearnPublisher publishes suggestion-learn events; nil disables learning.
type LearnPublisher interface {
	PublishSuggestionLearn(ctx context.Context, msg *amqp.SuggestionLearnMessage) error
}

// TransactionService orchestrates transaction writes and the best-effort
// suggestion learning that rides along with them.
type TransactionService struct {
	store     core.TransactionStore
	cards     core.CardLookup
	generator *recurrence.Generator
	mutator   *series.Mutator
	publisher LearnPublisher
	now       func() time.Time
}

func NewTransactionService(store core.TransactionStore, cards core.CardLookup, publisher LearnPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		cards:     cards,
		generator: recurrence.NewGenerator(store),
		mutator:   series.NewMutator(store),
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateTransaction expands the draft into its occurrences, persists them and
// fires a learn event for the suggestion subsystem. The learn publish never
// blocks or fails the save.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID string, draft core.TransactionDraft) (recurrence.Result, error) {
	res, err := s.generator.Generate(ctx, draft)
	if err != nil {
		return recurrence.Result{}, err
	}

	if res.CreatedCount > 0 {
		s.publishLearn(ctx, userID, draft)
	}

	return res, nil
}

func (s *TransactionService) publishLearn(ctx context.Context, userID string, draft core.TransactionDraft) {
	if s.publisher == nil || draft.CategoryID == "" {
		return
	}

	method := core.PayAccount
	if draft.CardID != "" {
		method = core.PayCreditCard
	}

	msg := amqp.NewSuggestionLearnMessage(userID, draft.Description,
		draft.CategoryID, draft.AccountID, draft.CardID, method)
	if err := s.publisher.PublishSuggestionLearn(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish suggestion learn message",
			"user_id", userID,
			"category_id", draft.CategoryID,
			"error", err)
		// Don't fail the request, learning is fire-and-forget.
	}
}

// MoveSeriesMonth shifts every occurrence of a series by the given number of
// calendar months.
func (s *TransactionService) MoveSeriesMonth(ctx context.Context, seriesID string, months int) error {
	return s.mutator.MoveSeriesMonth(ctx, seriesID, months)
}

// AnticipateInstallment pulls one future installment into the target
// statement cycle.
func (s *TransactionService) AnticipateInstallment(ctx context.Context, occurrenceID string, targetMonth, targetYear int, discount decimal.Decimal) (series.AnticipateResult, error) {
	return s.mutator.AnticipateInstallment(ctx, occurrenceID, targetMonth, targetYear, discount)
}

// DeleteTransaction removes a single occurrence.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// DeleteSeriesFrom removes every occurrence of the series at or past the
// given installment number.
func (s *TransactionService) DeleteSeriesFrom(ctx context.Context, seriesID string, fromInstallment int) (int, error) {
	return s.mutator.DeleteFromInstallment(ctx, seriesID, fromInstallment)
}

// IsFutureInstallment classifies an occurrence against its card's next
// available statement cycle.
func (s *TransactionService) IsFutureInstallment(ctx context.Context, occurrenceID string) (bool, error) {
	occ, err := s.store.Get(ctx, occurrenceID)
	if err != nil {
		return false, fmt.Errorf("get occurrence: %w", err)
	}
	if !occ.HasCard() {
		return false, nil
	}

	card, err := s.cards.Card(ctx, occ.CardID)
	if err != nil {
		return false, fmt.Errorf("lookup card %s: %w", occ.CardID, err)
	}

	return billing.IsFutureInstallment(occ, &card, s.now()), nil
}

// CanDeleteCategory reports whether a category has no transactions left
// referencing it. Callers gate category deletion on this.
func (s *TransactionService) CanDeleteCategory(ctx context.Context, categoryID string) (bool, error) {
	count, err := s.store.CountByCategory(ctx, categoryID)
	if err != nil {
		return false, fmt.Errorf("count category transactions: %w", err)
	}
	return count == 0, nil
}

// SuggestionService serves lookups and degrades to silence on any failure:
// absence of a suggestion is never an error worth surfacing to a save path.
type SuggestionService struct {
	store *suggest.Store
}

func NewSuggestionService(store *suggest.Store) *SuggestionService {
	return &SuggestionService{store: store}
}

// Lookup returns a suggestion for the typed description, or nil. Store
// failures are logged and swallowed.
func (s *SuggestionService) Lookup(ctx context.Context, userID, description string) *suggest.Suggestion {
	sug, err := s.store.Lookup(ctx, userID, description)
	if err != nil {
		slog.ErrorContext(ctx, "Suggestion lookup failed",
			"user_id", userID,
			"error", err)
		return nil
	}
	return sug
}

// Learn applies a learn event. Used by the suggestion worker.
func (s *SuggestionService) Learn(ctx context.Context, msg *amqp.SuggestionLearnMessage) error {
	return s.store.Learn(ctx, msg.UserID, msg.Description, msg.CategoryID,
		msg.AccountID, msg.CreditCardID, msg.PaymentMethod)
}
