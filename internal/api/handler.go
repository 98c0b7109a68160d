// Package api exposes the core over JSON/HTTP. It is a thin presentation
// collaborator: field parsing and token checks happen here, every business
// rule lives in the bank packages.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"blibank/internal/bank"
	"blibank/internal/domain"
	"blibank/pkg/metrics"
)

type Handler struct {
	bank    *bank.Bank
	tokens  *TokenManager
	metrics *metrics.Collector
	logger  *slog.Logger
}

func NewHandler(b *bank.Bank, tokens *TokenManager, collector *metrics.Collector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		bank:    b,
		tokens:  tokens,
		metrics: collector,
		logger:  logger,
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /logout", h.withSession(h.handleLogout))

	mux.HandleFunc("POST /deposit", h.withClient(h.handleDeposit))
	mux.HandleFunc("POST /withdraw", h.withClient(h.handleWithdraw))
	mux.HandleFunc("POST /transfer", h.withClient(h.handleTransfer))
	mux.HandleFunc("POST /invest", h.withClient(h.handleInvest))
	mux.HandleFunc("GET /card", h.withClient(h.handleCardDetail))
	mux.HandleFunc("POST /card/request", h.withClient(h.handleRequestCard))
	mux.HandleFunc("POST /card/purchase", h.withClient(h.handlePurchase))
	mux.HandleFunc("POST /card/pay", h.withClient(h.handlePayStatement))
	mux.HandleFunc("POST /card/limit-increase", h.withClient(h.handleRequestLimitIncrease))
	mux.HandleFunc("POST /closure/request", h.withClient(h.handleRequestClosure))

	mux.HandleFunc("GET /admin/pending-cards", h.withAdmin(h.handlePendingCards))
	mux.HandleFunc("GET /admin/pending-limits", h.withAdmin(h.handlePendingLimits))
	mux.HandleFunc("GET /admin/closures", h.withAdmin(h.handleClosureRequests))
	mux.HandleFunc("GET /admin/clients", h.withAdmin(h.handleClients))
	mux.HandleFunc("GET /admin/client", h.withAdmin(h.handleClientDetail))
	mux.HandleFunc("POST /admin/approve-card", h.withAdmin(h.handleApproveCard))
	mux.HandleFunc("POST /admin/approve-limit", h.withAdmin(h.handleApproveLimit))
	mux.HandleFunc("POST /admin/approve-closure", h.withAdmin(h.handleApproveClosure))

	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}, http.StatusOK)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, session *bank.Session)
type clientHandler func(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount)

// withSession resolves the bearer token to an active session. Tokens whose
// session was logged out are rejected even before expiry.
func (h *Handler) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			h.sendError(w, "Missing bearer token", http.StatusUnauthorized, "MISSING_TOKEN")
			return
		}
		sessionID, _, err := h.tokens.Parse(raw)
		if err != nil {
			h.sendError(w, "Invalid or expired token", http.StatusUnauthorized, "INVALID_TOKEN")
			return
		}
		session, ok := h.bank.Session(sessionID)
		if !ok {
			h.sendError(w, "Session is no longer active", http.StatusUnauthorized, "SESSION_CLOSED")
			return
		}
		next(w, r, session)
	}
}

func (h *Handler) withClient(next clientHandler) http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, session *bank.Session) {
		client, err := session.Client()
		if err != nil {
			h.sendError(w, "Operation requires a client account", http.StatusForbidden, "NOT_A_CLIENT")
			return
		}
		next(w, r, session, client)
	})
}

func (h *Handler) withAdmin(next sessionHandler) http.HandlerFunc {
	return h.withSession(func(w http.ResponseWriter, r *http.Request, session *bank.Session) {
		if !session.IsAdmin() {
			h.sendError(w, "Operation requires an administrator account", http.StatusForbidden, "NOT_AN_ADMIN")
			return
		}
		next(w, r, session)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return false
	}
	return true
}

// parseAmount parses a monetary field sent as a string, keeping float
// arithmetic out of the core entirely.
func (h *Handler) parseAmount(w http.ResponseWriter, field, value string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		h.sendError(w, "Field "+field+" must be a decimal number", http.StatusBadRequest, "INVALID_AMOUNT")
		return decimal.Zero, false
	}
	return d, true
}

// observe records one operation's outcome in the metrics collector.
func (h *Handler) observe(operation string, start time.Time, err error) {
	h.metrics.RecordOperation(operation, time.Since(start), err == nil)
}

func (h *Handler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	h.sendJSON(w, ErrorResponse{Error: message, Code: code}, statusCode)
}

// sendDomainError maps each error kind to its own message and status, so
// the caller always sees which invariant was violated.
func (h *Handler) sendDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		h.sendError(w, "Invalid email or password", http.StatusUnauthorized, "INVALID_CREDENTIALS")
	case errors.Is(err, domain.ErrInsufficientFunds):
		h.sendError(w, "Insufficient funds", http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS")
	case errors.Is(err, domain.ErrLimitExceeded):
		h.sendError(w, "Credit limit exceeded", http.StatusUnprocessableEntity, "LIMIT_EXCEEDED")
	case errors.Is(err, domain.ErrConflict):
		h.sendError(w, err.Error(), http.StatusConflict, "CONFLICT")
	case errors.Is(err, domain.ErrNotFound):
		h.sendError(w, err.Error(), http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, domain.ErrInvalidState):
		h.sendError(w, err.Error(), http.StatusConflict, "INVALID_STATE")
	case errors.Is(err, domain.ErrValidation):
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
	case errors.Is(err, domain.ErrPersistence):
		h.logger.Error("Persistence failure", slog.String("error", err.Error()))
		h.sendError(w, "Operation could not be persisted and was rolled back", http.StatusInternalServerError, "PERSISTENCE_ERROR")
	default:
		h.logger.Error("Unhandled error", slog.String("error", err.Error()))
		h.sendError(w, "Internal error", http.StatusInternalServerError, "INTERNAL_ERROR")
	}
}
