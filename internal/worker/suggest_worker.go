// Package worker applies queued suggestion-learn events to the pattern
// store. It sits on the consuming side of the AMQP pipeline; the API process
// only publishes.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/suggest"
)

// SuggestWorker folds learn messages into the suggestion store.
type SuggestWorker struct {
	suggestions *suggest.Store
}

func NewSuggestWorker(suggestions *suggest.Store) *SuggestWorker {
	return &SuggestWorker{suggestions: suggestions}
}

// HandleLearnMessage processes a single learn message. Returning an error
// requeues the delivery.
func (w *SuggestWorker) HandleLearnMessage(ctx context.Context, msg *amqp.SuggestionLearnMessage) error {
	if w.suggestions == nil {
		return fmt.Errorf("worker not properly initialized")
	}

	err := w.suggestions.Learn(ctx, msg.UserID, msg.Description, msg.CategoryID,
		msg.AccountID, msg.CreditCardID, msg.PaymentMethod)
	if err != nil {
		return fmt.Errorf("learn pattern: %w", err)
	}

	slog.DebugContext(ctx, "Learned suggestion pattern",
		"user_id", msg.UserID,
		"category_id", msg.CategoryID)

	return nil
}
