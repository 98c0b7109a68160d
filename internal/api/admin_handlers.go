package api

import (
	"net/http"
	"time"

	"blibank/internal/bank"
	"blibank/internal/domain"
)

type ClientSummary struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	CardStatus       string `json:"card_status"`
	CreditLimit      string `json:"credit_limit"`
	RequestedLimit   string `json:"requested_limit"`
	ClosureRequested bool   `json:"closure_requested"`
}

func clientSummaries(clients []*domain.ClientAccount) []ClientSummary {
	summaries := make([]ClientSummary, 0, len(clients))
	for _, c := range clients {
		summaries = append(summaries, ClientSummary{
			Name:             c.Name(),
			Email:            c.Email(),
			CardStatus:       string(c.CardStatus),
			CreditLimit:      c.CreditLimit.StringFixed(2),
			RequestedLimit:   c.RequestedLimit.StringFixed(2),
			ClosureRequested: c.ClosureRequested,
		})
	}
	return summaries
}

func (h *Handler) handlePendingCards(w http.ResponseWriter, r *http.Request, session *bank.Session) {
	h.sendJSON(w, clientSummaries(h.bank.Approvals.PendingCards()), http.StatusOK)
}

func (h *Handler) handlePendingLimits(w http.ResponseWriter, r *http.Request, session *bank.Session) {
	h.sendJSON(w, clientSummaries(h.bank.Approvals.PendingLimitIncreases()), http.StatusOK)
}

func (h *Handler) handleClosureRequests(w http.ResponseWriter, r *http.Request, session *bank.Session) {
	h.sendJSON(w, clientSummaries(h.bank.Approvals.ClosureRequests()), http.StatusOK)
}

func (h *Handler) handleClients(w http.ResponseWriter, r *http.Request, session *bank.Session) {
	h.sendJSON(w, clientSummaries(h.bank.Approvals.Clients()), http.StatusOK)
}

type ClientDetailResponse struct {
	Name             string `json:"name"`
	Surname          string `json:"surname"`
	Email            string `json:"email"`
	CPF              string `json:"cpf"`
	Balance          string `json:"balance"`
	CardStatus       string `json:"card_status"`
	CreditLimit      string `json:"credit_limit"`
	CardDebt         string `json:"card_debt"`
	RequestedLimit   string `json:"requested_limit"`
	ClosureRequested bool   `json:"closure_requested"`
}

func (h *Handler) handleClientDetail(w http.ResponseWriter, r *http.Request, session *bank.Session) {
	email := r.URL.Query().Get("email")
	if email == "" {
		h.sendError(w, "Query parameter email is required", http.StatusBadRequest, "MISSING_EMAIL")
		return
	}
	detail, err := h.bank.Approvals.ClientDetail(email)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, ClientDetailResponse{
		Name:             detail.Name,
		Surname:          detail.Surname,
		Email:            detail.Email,
		CPF:              detail.CPF,
		Balance:          detail.Balance.StringFixed(2),
		CardStatus:       string(detail.CardStatus),
		CreditLimit:      detail.CreditLimit.StringFixed(2),
		CardDebt:         detail.CardDebt.StringFixed(2),
		RequestedLimit:   detail.RequestedLimit.StringFixed(2),
		ClosureRequested: detail.ClosureRequested,
	}, http.StatusOK)
}

type ApproveCardRequest struct {
	Email        string `json:"email"`
	InitialLimit string `json:"initial_limit"`
}

func (h *Handler) handleApproveCard(w http.ResponseWriter, r *http.Request, session *bank.Session) {
	start := time.Now()
	var req ApproveCardRequest
	if !h.decode(w, r, &req) {
		return
	}
	limit, ok := h.parseAmount(w, "initial_limit", req.InitialLimit)
	if !ok {
		return
	}

	err := h.bank.Approvals.ApproveCardFor(r.Context(), req.Email, limit)
	h.observe("approve_card", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, map[string]string{"message": "Card approved"}, http.StatusOK)
}

type ApproveRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleApproveLimit(w http.ResponseWriter, r *http.Request, session *bank.Session) {
	start := time.Now()
	var req ApproveRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.bank.Approvals.ApproveLimitIncreaseFor(r.Context(), req.Email)
	h.observe("approve_limit", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, map[string]string{"message": "Limit increase approved"}, http.StatusOK)
}

func (h *Handler) handleApproveClosure(w http.ResponseWriter, r *http.Request, session *bank.Session) {
	start := time.Now()
	var req ApproveRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.bank.Approvals.ApproveClosure(r.Context(), req.Email)
	h.observe("approve_closure", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.metrics.RemoveAccount(domain.NormalizeEmail(req.Email))
	h.sendJSON(w, map[string]string{"message": "Account closed"}, http.StatusOK)
}
