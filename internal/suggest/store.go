// Package suggest learns description→category associations from saved
// transactions and serves per-keystroke lookups against them. Lookups are
// read-heavy and cached in process, including negative results; Learn keeps
// the cache coherent with what it just wrote.
package suggest

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"contas/internal/cache"
	"contas/internal/core"
)

const (
	// Keys shorter than this are too ambiguous to persist or query.
	minKeyLength = 3

	// prefixEndSentinel bounds the lexical range scan just past every key
	// that starts with the queried prefix.
	prefixEndSentinel = "\uf8ff"

	// prefixScanLimit caps how many candidates a prefix scan considers.
	prefixScanLimit = 25
)

// Suggestion is the answer served back while the user types. All reference
// fields may be empty.
type Suggestion struct {
	CategoryID    string
	AccountID     string
	CreditCardID  string
	PaymentMethod core.PaymentMethod
	Count         int64
}

// Store wraps the pattern store with normalization and an in-process cache.
// A cached nil Suggestion is the no-match sentinel: absence is a normal,
// cacheable outcome, not an error.
type Store struct {
	patterns core.PatternStore
	cache    *cache.Cache[*Suggestion]
	now      func() time.Time
}

func NewStore(patterns core.PatternStore, cacheSize int, cacheTTL time.Duration) *Store {
	return &Store{
		patterns: patterns,
		cache:    cache.New[*Suggestion](cacheSize, cacheTTL),
		now:      time.Now,
	}
}

// Learn records that the user filed description under categoryID with the
// given payment references. Descriptions that normalize below the minimum
// key length, or saves without a category, are silently skipped. The merge
// is last-write-wins per field with an atomic count increment at the store,
// and the cache entry for the key is refreshed synchronously so a lookup in
// the same process sees the new count without a round trip.
func (s *Store) Learn(ctx context.Context, userID, description, categoryID, accountID, creditCardID string, method core.PaymentMethod) error {
	key := NormalizeDescription(description)
	if utf8.RuneCountInString(key) < minKeyLength || categoryID == "" {
		return nil
	}

	merged, err := s.patterns.UpsertMerge(ctx, userID, core.SuggestionPattern{
		NormalizedDescription: key,
		CategoryID:            categoryID,
		AccountID:             accountID,
		CreditCardID:          creditCardID,
		PaymentMethod:         method,
		Count:                 1,
		LastUsedAt:            s.now(),
	})
	if err != nil {
		return fmt.Errorf("upsert pattern %q: %w", key, err)
	}

	s.cache.Set(cacheKey(userID, key), suggestionFrom(merged))
	return nil
}

// Lookup resolves a suggestion for what the user has typed so far. The
// resolution order is cache (including the no-match sentinel), exact key,
// then a bounded lexical prefix scan where the highest count wins and ties
// go to the first candidate in scan order. Patterns with a count below 1 are
// never a real signal and are filtered on every path.
func (s *Store) Lookup(ctx context.Context, userID, description string) (*Suggestion, error) {
	key := NormalizeDescription(description)
	if utf8.RuneCountInString(key) < minKeyLength {
		return nil, nil
	}

	ck := cacheKey(userID, key)
	if cached, ok := s.cache.Get(ck); ok {
		return cached, nil
	}

	doc, err := s.patterns.GetExact(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("exact lookup %q: %w", key, err)
	}
	if doc != nil && doc.Count >= 1 {
		sug := suggestionFrom(*doc)
		s.cache.Set(ck, sug)
		return sug, nil
	}

	candidates, err := s.patterns.RangeQuery(ctx, userID, key, key+prefixEndSentinel, prefixScanLimit)
	if err != nil {
		return nil, fmt.Errorf("prefix lookup %q: %w", key, err)
	}

	var best *core.SuggestionPattern
	for i := range candidates {
		if candidates[i].Count < 1 {
			continue
		}
		if best == nil || candidates[i].Count > best.Count {
			best = &candidates[i]
		}
	}
	if best == nil {
		s.cache.Set(ck, nil)
		return nil, nil
	}

	sug := suggestionFrom(*best)
	s.cache.Set(ck, sug)
	return sug, nil
}

func suggestionFrom(p core.SuggestionPattern) *Suggestion {
	return &Suggestion{
		CategoryID:    p.CategoryID,
		AccountID:     p.AccountID,
		CreditCardID:  p.CreditCardID,
		PaymentMethod: p.PaymentMethod,
		Count:         p.Count,
	}
}

func cacheKey(userID, key string) string {
	return userID + "\x1f" + key
}
