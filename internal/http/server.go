// Package http exposes the transaction and suggestion services over a small
// JSON API. The core stays a library; this is the thin binding the app and
// tooling talk to.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"contas/internal/log"
	"contas/internal/services"
)

// defaultUserID scopes suggestion patterns when the client sends no
// X-User-ID header. One process serves one user in the common deployment.
const defaultUserID = "local"

type Server struct {
	http.Server

	transactions *services.TransactionService
	suggestions  *services.SuggestionService
}

func NewServer(addr string, transactions *services.TransactionService, suggestions *services.SuggestionService) *Server {
	s := &Server{
		transactions: transactions,
		suggestions:  suggestions,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/anticipate", s.handleAnticipate)
	mux.HandleFunc("GET /api/transactions/{id}/future", s.handleFutureInstallment)
	mux.HandleFunc("POST /api/series/{id}/move", s.handleMoveSeries)
	mux.HandleFunc("DELETE /api/series/{id}", s.handleDeleteSeries)
	mux.HandleFunc("GET /api/suggestions", s.handleSuggestionLookup)
	mux.HandleFunc("GET /api/categories/{id}/deletable", s.handleCategoryDeletable)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        requestLogger(mux),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs every request with its outcome status, attributed to the
// http component.
func requestLogger(next http.Handler) http.Handler {
	logger := log.New(log.DefaultConfig()).WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.InfoContext(r.Context(), "Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return defaultUserID
}
