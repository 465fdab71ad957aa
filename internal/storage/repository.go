// Package storage implements the core persistence ports on SQLite. One
// repository backs both transactions and suggestion patterns; pattern merges
// lean on SQLite's atomic upsert so concurrent learns never lose a count
// increment.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"contas/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = `id, series_id, type, amount, description, category_id,
	account_id, card_id, transfer_to_id, date, cycle_month, cycle_year, status,
	installment_current, installment_total, anticipated_from_month,
	anticipated_from_year, anticipated_at, anticipation_discount,
	related_transaction_id`

// Create implements core.TransactionStore.
func (r *SQLiteRepository) Create(ctx context.Context, occ core.TransactionOccurrence) (string, error) {
	if occ.ID == "" {
		occ.ID = uuid.NewString()
	}

	var antMonth, antYear sql.NullInt64
	var antAt sql.NullTime
	if occ.AnticipatedFrom != nil {
		antMonth = sql.NullInt64{Int64: int64(occ.AnticipatedFrom.Month), Valid: true}
		antYear = sql.NullInt64{Int64: int64(occ.AnticipatedFrom.Year), Valid: true}
		antAt = sql.NullTime{Time: occ.AnticipatedFrom.CapturedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		occ.ID, nullString(occ.SeriesID), string(occ.Type), occ.Amount.String(),
		occ.Description, nullString(occ.CategoryID), nullString(occ.AccountID),
		nullString(occ.CardID), nullString(occ.TransferToID), occ.Date,
		occ.CycleMonth, occ.CycleYear, string(occ.Status),
		occ.InstallmentCurrent, occ.InstallmentTotal,
		antMonth, antYear, antAt,
		nullDecimal(occ.AnticipationDiscount), nullString(occ.RelatedTransactionID))
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", occ.ID,
		"series_id", occ.SeriesID,
		"amount", occ.Amount.String(),
		"status", string(occ.Status))

	return occ.ID, nil
}

// Get implements core.TransactionStore.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.TransactionOccurrence, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	occ, err := scanOccurrence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TransactionOccurrence{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.TransactionOccurrence{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return occ, nil
}

// Update implements core.TransactionStore with a full-record update.
func (r *SQLiteRepository) Update(ctx context.Context, occ core.TransactionOccurrence) error {
	var antMonth, antYear sql.NullInt64
	var antAt sql.NullTime
	if occ.AnticipatedFrom != nil {
		antMonth = sql.NullInt64{Int64: int64(occ.AnticipatedFrom.Month), Valid: true}
		antYear = sql.NullInt64{Int64: int64(occ.AnticipatedFrom.Year), Valid: true}
		antAt = sql.NullTime{Time: occ.AnticipatedFrom.CapturedAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			series_id = ?, type = ?, amount = ?, description = ?, category_id = ?,
			account_id = ?, card_id = ?, transfer_to_id = ?, date = ?,
			cycle_month = ?, cycle_year = ?, status = ?,
			installment_current = ?, installment_total = ?,
			anticipated_from_month = ?, anticipated_from_year = ?, anticipated_at = ?,
			anticipation_discount = ?, related_transaction_id = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		nullString(occ.SeriesID), string(occ.Type), occ.Amount.String(),
		occ.Description, nullString(occ.CategoryID), nullString(occ.AccountID),
		nullString(occ.CardID), nullString(occ.TransferToID), occ.Date,
		occ.CycleMonth, occ.CycleYear, string(occ.Status),
		occ.InstallmentCurrent, occ.InstallmentTotal,
		antMonth, antYear, antAt,
		nullDecimal(occ.AnticipationDiscount), nullString(occ.RelatedTransactionID),
		occ.ID)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", occ.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", occ.ID, ErrNotFound)
	}
	return nil
}

// Delete implements core.TransactionStore.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

// QueryBySeries implements core.TransactionStore. Occurrences come back in
// installment order.
func (r *SQLiteRepository) QueryBySeries(ctx context.Context, seriesID string) ([]core.TransactionOccurrence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE series_id = ? ORDER BY installment_current`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("query series %s: %w", seriesID, err)
	}
	defer rows.Close()

	var out []core.TransactionOccurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		out = append(out, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series %s: %w", seriesID, err)
	}
	return out, nil
}

// CountByCategory implements core.TransactionStore; used to gate category
// deletion.
func (r *SQLiteRepository) CountByCategory(ctx context.Context, categoryID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE category_id = ?`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count category %s: %w", categoryID, err)
	}
	return count, nil
}

// GetExact implements core.PatternStore.
func (r *SQLiteRepository) GetExact(ctx context.Context, userID, key string) (*core.SuggestionPattern, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT normalized_description, category_id, account_id, credit_card_id,
			payment_method, count, last_used_at
		FROM suggestion_patterns
		WHERE user_id = ? AND normalized_description = ?`, userID, key)

	p, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pattern %q: %w", key, err)
	}
	return &p, nil
}

// RangeQuery implements core.PatternStore: a lexical scan over
// [start, end), ordered by key, bounded by limit.
func (r *SQLiteRepository) RangeQuery(ctx context.Context, userID, start, end string, limit int) ([]core.SuggestionPattern, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT normalized_description, category_id, account_id, credit_card_id,
			payment_method, count, last_used_at
		FROM suggestion_patterns
		WHERE user_id = ? AND normalized_description >= ? AND normalized_description < ?
		ORDER BY normalized_description
		LIMIT ?`, userID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("range query %q: %w", start, err)
	}
	defer rows.Close()

	var out []core.SuggestionPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patterns: %w", err)
	}
	return out, nil
}

// UpsertMerge implements core.PatternStore. The count increment happens in
// the database, so concurrent learns for the same key cannot lose updates;
// the other fields are last-write-wins.
func (r *SQLiteRepository) UpsertMerge(ctx context.Context, userID string, p core.SuggestionPattern) (core.SuggestionPattern, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO suggestion_patterns
			(user_id, normalized_description, category_id, account_id,
			 credit_card_id, payment_method, count, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (user_id, normalized_description) DO UPDATE SET
			category_id = excluded.category_id,
			account_id = excluded.account_id,
			credit_card_id = excluded.credit_card_id,
			payment_method = excluded.payment_method,
			count = count + 1,
			last_used_at = excluded.last_used_at
		RETURNING normalized_description, category_id, account_id,
			credit_card_id, payment_method, count, last_used_at`,
		userID, p.NormalizedDescription, p.CategoryID, nullString(p.AccountID),
		nullString(p.CreditCardID), nullString(string(p.PaymentMethod)), p.LastUsedAt)

	merged, err := scanPattern(row)
	if err != nil {
		return core.SuggestionPattern{}, fmt.Errorf("upsert pattern %q: %w", p.NormalizedDescription, err)
	}
	return merged, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOccurrence(row rowScanner) (core.TransactionOccurrence, error) {
	var (
		occ                              core.TransactionOccurrence
		seriesID, categoryID, accountID  sql.NullString
		cardID, transferToID, relatedID  sql.NullString
		typ, status, amount              string
		antMonth, antYear                sql.NullInt64
		antAt                            sql.NullTime
		discount                         sql.NullString
	)

	err := row.Scan(&occ.ID, &seriesID, &typ, &amount, &occ.Description,
		&categoryID, &accountID, &cardID, &transferToID, &occ.Date,
		&occ.CycleMonth, &occ.CycleYear, &status,
		&occ.InstallmentCurrent, &occ.InstallmentTotal,
		&antMonth, &antYear, &antAt, &discount, &relatedID)
	if err != nil {
		return core.TransactionOccurrence{}, err
	}

	occ.SeriesID = seriesID.String
	occ.CategoryID = categoryID.String
	occ.AccountID = accountID.String
	occ.CardID = cardID.String
	occ.TransferToID = transferToID.String
	occ.RelatedTransactionID = relatedID.String
	occ.Type = core.TransactionType(typ)
	occ.Status = core.OccurrenceStatus(status)

	occ.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.TransactionOccurrence{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if discount.Valid && discount.String != "" {
		occ.AnticipationDiscount, err = decimal.NewFromString(discount.String)
		if err != nil {
			return core.TransactionOccurrence{}, fmt.Errorf("parse discount %q: %w", discount.String, err)
		}
	}
	if antMonth.Valid && antYear.Valid {
		occ.AnticipatedFrom = &core.CycleStamp{
			Month:      int(antMonth.Int64),
			Year:       int(antYear.Int64),
			CapturedAt: antAt.Time,
		}
	}
	return occ, nil
}

func scanPattern(row rowScanner) (core.SuggestionPattern, error) {
	var (
		p                              core.SuggestionPattern
		accountID, cardID, payMethod   sql.NullString
		lastUsed                       time.Time
	)
	err := row.Scan(&p.NormalizedDescription, &p.CategoryID, &accountID,
		&cardID, &payMethod, &p.Count, &lastUsed)
	if err != nil {
		return core.SuggestionPattern{}, err
	}
	p.AccountID = accountID.String
	p.CreditCardID = cardID.String
	p.PaymentMethod = core.PaymentMethod(payMethod.String)
	p.LastUsedAt = lastUsed
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d decimal.Decimal) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
