package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/core"
	"contas/internal/series"
)

type recurrenceRequest struct {
	Kind        core.RecurrenceKind `json:"kind"`
	Mode        core.RecurrenceMode `json:"mode"`
	Occurrences int                 `json:"occurrences"`
}

type createTransactionRequest struct {
	Type         core.TransactionType `json:"type"`
	Amount       decimal.Decimal      `json:"amount"`
	Description  string               `json:"description"`
	CategoryID   string               `json:"category_id"`
	AccountID    string               `json:"account_id"`
	CardID       string               `json:"card_id"`
	TransferToID string               `json:"transfer_to_id"`
	Date         string               `json:"date"`
	Recurrence   *recurrenceRequest   `json:"recurrence"`
}

type createTransactionResponse struct {
	SeriesID     string   `json:"series_id,omitempty"`
	CreatedIDs   []string `json:"created_ids"`
	CreatedCount int      `json:"created_count"`
	Requested    int      `json:"requested"`
	Partial      bool     `json:"partial"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
		return
	}

	spec := core.RecurrenceSpec{Kind: core.None, Occurrences: 1}
	if req.Recurrence != nil {
		spec = core.RecurrenceSpec{
			Kind:        req.Recurrence.Kind,
			Mode:        req.Recurrence.Mode,
			Occurrences: req.Recurrence.Occurrences,
		}
	}

	draft := core.TransactionDraft{
		Type:         req.Type,
		Amount:       req.Amount,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		AccountID:    req.AccountID,
		CardID:       req.CardID,
		TransferToID: req.TransferToID,
		Date:         date,
		Recurrence:   spec,
	}

	res, err := s.transactions.CreateTransaction(r.Context(), userID(r), draft)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	status := http.StatusCreated
	if res.Partial() {
		// Partial series: the caller surfaces a partial-success message.
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, createTransactionResponse{
		SeriesID:     res.SeriesID,
		CreatedIDs:   res.CreatedIDs,
		CreatedCount: res.CreatedCount,
		Requested:    res.Requested,
		Partial:      res.Partial(),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.transactions.DeleteTransaction(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "id", id, "error", err)
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type anticipateRequest struct {
	Month    int             `json:"month"`
	Year     int             `json:"year"`
	Discount decimal.Decimal `json:"discount"`
}

type anticipateResponse struct {
	Success               bool   `json:"success"`
	DiscountTransactionID string `json:"discount_transaction_id,omitempty"`
}

func (s *Server) handleAnticipate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req anticipateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Month < 1 || req.Month > 12 || req.Year < 1 {
		writeError(w, http.StatusUnprocessableEntity, "invalid target month/year")
		return
	}

	res, err := s.transactions.AnticipateInstallment(r.Context(), id, req.Month, req.Year, req.Discount)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to anticipate installment",
			"id", id,
			"target_month", req.Month,
			"target_year", req.Year,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, anticipateResponse{Success: false})
		return
	}

	writeJSON(w, http.StatusOK, anticipateResponse{
		Success:               true,
		DiscountTransactionID: res.DiscountTransactionID,
	})
}

func (s *Server) handleFutureInstallment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	future, err := s.transactions.IsFutureInstallment(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to classify installment", "id", id, "error", err)
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"future": future})
}

type moveSeriesRequest struct {
	Months int `json:"months"`
}

func (s *Server) handleMoveSeries(w http.ResponseWriter, r *http.Request) {
	seriesID := r.PathValue("id")

	var req moveSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.transactions.MoveSeriesMonth(r.Context(), seriesID, req.Months); err != nil {
		slog.ErrorContext(r.Context(), "Failed to move series",
			"series_id", seriesID,
			"months", req.Months,
			"error", err)
		switch {
		case errors.Is(err, series.ErrZeroMonths):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, series.ErrSeriesNotFound):
			writeError(w, http.StatusNotFound, "series not found")
		default:
			// Callers retry the whole operation.
			writeJSON(w, http.StatusInternalServerError, map[string]bool{"success": false})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	seriesID := r.PathValue("id")

	from := 1
	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusUnprocessableEntity, "invalid from installment")
			return
		}
		from = n
	}

	deleted, err := s.transactions.DeleteSeriesFrom(r.Context(), seriesID, from)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete series tail",
			"series_id", seriesID,
			"from", from,
			"error", err)
		if errors.Is(err, series.ErrSeriesNotFound) {
			writeError(w, http.StatusNotFound, "series not found")
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]bool{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

type suggestionResponse struct {
	CategoryID    string             `json:"category_id"`
	AccountID     string             `json:"account_id,omitempty"`
	CreditCardID  string             `json:"credit_card_id,omitempty"`
	PaymentMethod core.PaymentMethod `json:"payment_method,omitempty"`
	Count         int64              `json:"count"`
}

func (s *Server) handleSuggestionLookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	sug := s.suggestions.Lookup(r.Context(), userID(r), query)
	if sug == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, suggestionResponse{
		CategoryID:    sug.CategoryID,
		AccountID:     sug.AccountID,
		CreditCardID:  sug.CreditCardID,
		PaymentMethod: sug.PaymentMethod,
		Count:         sug.Count,
	})
}

func (s *Server) handleCategoryDeletable(w http.ResponseWriter, r *http.Request) {
	categoryID := r.PathValue("id")

	deletable, err := s.transactions.CanDeleteCategory(r.Context(), categoryID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to check category", "category_id", categoryID, "error", err)
		writeError(w, http.StatusInternalServerError, "category check failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deletable": deletable})
}
