// Package core provides the domain model and the ports the rest of the
// application plugs into. Persistence is abstract here: callers supply a
// TransactionStore and a PatternStore, the core never interprets
// store-specific error codes.
package core

import (
	"context"
	"errors"
	"fmt"
)

// TransactionStore is the persistence port for transaction occurrences.
type TransactionStore interface {
	Create(ctx context.Context, occ TransactionOccurrence) (string, error)
	Get(ctx context.Context, id string) (TransactionOccurrence, error)
	Update(ctx context.Context, occ TransactionOccurrence) error
	Delete(ctx context.Context, id string) error
	QueryBySeries(ctx context.Context, seriesID string) ([]TransactionOccurrence, error)
	CountByCategory(ctx context.Context, categoryID string) (int64, error)
}

// PatternStore is the persistence port for suggestion patterns. UpsertMerge
// must increment Count atomically and returns the merged document.
type PatternStore interface {
	GetExact(ctx context.Context, userID, key string) (*SuggestionPattern, error)
	RangeQuery(ctx context.Context, userID, start, end string, limit int) ([]SuggestionPattern, error)
	UpsertMerge(ctx context.Context, userID string, p SuggestionPattern) (SuggestionPattern, error)
}

// CardLookup resolves a card id to its statement configuration. Supplied by
// the caller, not owned by the core.
type CardLookup interface {
	Card(ctx context.Context, id string) (Card, error)
}

// ErrCardNotFound is returned by CardLookup implementations for unknown ids.
var ErrCardNotFound = errors.New("card not found")

// CardDirectory is a static CardLookup for deployments where the card set
// comes from configuration.
type CardDirectory map[string]Card

func (d CardDirectory) Card(_ context.Context, id string) (Card, error) {
	card, ok := d[id]
	if !ok {
		return Card{}, fmt.Errorf("card %s: %w", id, ErrCardNotFound)
	}
	return card, nil
}
