package api

import (
	"errors"
	"net/http"
	"time"

	"blibank/internal/bank"
	"blibank/internal/domain"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
	CPF      string `json:"cpf"`
	Kind     string `json:"kind"`
}

type AccountResponse struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Kind    string `json:"kind"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	kind := domain.Kind(req.Kind)
	if req.Kind == "" {
		kind = domain.KindClient
	}
	account, err := h.bank.Register(r.Context(), req.Name, req.Surname, req.Email, req.Password, req.CPF, kind)
	h.observe("register", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	h.sendJSON(w, AccountResponse{
		Name:    account.Name(),
		Surname: account.Surname(),
		Email:   account.Email(),
		Kind:    string(account.Kind()),
	}, http.StatusCreated)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Kind  string `json:"kind"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.bank.Login(r.Context(), req.Email, req.Password)
	h.observe("login", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	token, err := h.tokens.Issue(session.ID, session.Account.Email(), string(session.Account.Kind()))
	if err != nil {
		h.bank.Logout(session.ID)
		h.sendError(w, "Failed to issue token", http.StatusInternalServerError, "TOKEN_ERROR")
		return
	}

	h.sendJSON(w, LoginResponse{Token: token, Kind: string(session.Account.Kind())}, http.StatusOK)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request, session *bank.Session) {
	h.bank.Logout(session.ID)
	h.sendJSON(w, map[string]string{"message": "Logged out"}, http.StatusOK)
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type BalanceResponse struct {
	Balance string `json:"balance"`
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	start := time.Now()
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}

	err := h.bank.Ledger.Deposit(r.Context(), client, amount)
	h.observe("deposit", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.metrics.SetAccountBalance(client.Email(), client.Balance)
	h.sendJSON(w, BalanceResponse{Balance: client.Balance.StringFixed(2)}, http.StatusOK)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	start := time.Now()
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}

	err := h.bank.Ledger.Withdraw(r.Context(), client, amount)
	h.observe("withdraw", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.metrics.SetAccountBalance(client.Email(), client.Balance)
	h.sendJSON(w, BalanceResponse{Balance: client.Balance.StringFixed(2)}, http.StatusOK)
}

type TransferRequest struct {
	Amount         string `json:"amount"`
	RecipientEmail string `json:"recipient_email"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	start := time.Now()
	var req TransferRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}

	err := h.bank.Ledger.Transfer(r.Context(), client, amount, req.RecipientEmail)
	h.observe("transfer", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.metrics.SetAccountBalance(client.Email(), client.Balance)
	h.sendJSON(w, BalanceResponse{Balance: client.Balance.StringFixed(2)}, http.StatusOK)
}

type InvestRequest struct {
	Amount     string `json:"amount"`
	AssetClass string `json:"asset_class"`
}

type InvestResponse struct {
	ReturnPct   string `json:"return_pct"`
	ReturnValue string `json:"return_value"`
	FinalValue  string `json:"final_value"`
	Balance     string `json:"balance"`
}

func (h *Handler) handleInvest(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	start := time.Now()
	var req InvestRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}

	result, err := h.bank.Investments.Invest(r.Context(), client, amount, req.AssetClass)
	h.observe("invest", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.metrics.SetAccountBalance(client.Email(), client.Balance)
	h.sendJSON(w, InvestResponse{
		ReturnPct:   result.ReturnPct.StringFixed(2),
		ReturnValue: result.ReturnValue.StringFixed(2),
		FinalValue:  result.FinalValue.StringFixed(2),
		Balance:     client.Balance.StringFixed(2),
	}, http.StatusOK)
}

type CardRequestResponse struct {
	Requested bool   `json:"requested"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func (h *Handler) handleRequestCard(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	start := time.Now()
	requested, err := h.bank.Cards.RequestCard(r.Context(), client)
	h.observe("request_card", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	message := "Card request submitted, awaiting approval"
	if !requested {
		if client.CardStatus == domain.CardApproved {
			message = "You already have an approved card"
		} else {
			message = "A card request is already pending"
		}
	}
	h.sendJSON(w, CardRequestResponse{
		Requested: requested,
		Status:    string(client.CardStatus),
		Message:   message,
	}, http.StatusOK)
}

type PurchaseLine struct {
	Time        string `json:"time"`
	Merchant    string `json:"merchant"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type CardDetailResponse struct {
	Status          string         `json:"status"`
	TotalLimit      string         `json:"total_limit"`
	AvailableCredit string         `json:"available_credit"`
	CurrentDebt     string         `json:"current_debt"`
	Statement       []PurchaseLine `json:"statement"`
}

func (h *Handler) handleCardDetail(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	detail, err := h.bank.Cards.Detail(r.Context(), client)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	resp := CardDetailResponse{
		Status:          string(detail.Status),
		TotalLimit:      detail.TotalLimit.StringFixed(2),
		AvailableCredit: detail.AvailableCredit.StringFixed(2),
		CurrentDebt:     detail.CurrentDebt.StringFixed(2),
		Statement:       []PurchaseLine{},
	}
	for _, rec := range detail.Statement.Records {
		resp.Statement = append(resp.Statement, PurchaseLine{
			Time:        rec.Time.Format(domain.PurchaseTimeLayout),
			Merchant:    rec.Merchant,
			Description: rec.Description,
			Amount:      rec.Amount.StringFixed(2),
		})
	}
	h.sendJSON(w, resp, http.StatusOK)
}

type PurchaseRequest struct {
	Amount      string `json:"amount"`
	Merchant    string `json:"merchant"`
	Description string `json:"description"`
}

type PurchaseResponse struct {
	Time            string `json:"time"`
	Amount          string `json:"amount"`
	CurrentDebt     string `json:"current_debt"`
	AvailableCredit string `json:"available_credit"`
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	start := time.Now()
	var req PurchaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}

	rec, err := h.bank.Cards.Purchase(r.Context(), client, amount, req.Merchant, req.Description)
	h.observe("purchase", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, PurchaseResponse{
		Time:            rec.Time.Format(domain.PurchaseTimeLayout),
		Amount:          rec.Amount.StringFixed(2),
		CurrentDebt:     client.CardDebt.StringFixed(2),
		AvailableCredit: client.AvailableCredit().StringFixed(2),
	}, http.StatusOK)
}

type PayStatementResponse struct {
	TotalPaid string `json:"total_paid"`
	Balance   string `json:"balance"`
	Message   string `json:"message"`
}

func (h *Handler) handlePayStatement(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	start := time.Now()
	total, err := h.bank.Cards.PayStatement(r.Context(), client)
	if errors.Is(err, domain.ErrNoStatement) {
		// Informational no-op for the end user, not a failure.
		h.observe("pay_statement", start, nil)
		h.sendJSON(w, PayStatementResponse{
			TotalPaid: "0.00",
			Balance:   client.Balance.StringFixed(2),
			Message:   "No open statement to pay",
		}, http.StatusOK)
		return
	}
	h.observe("pay_statement", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.metrics.SetAccountBalance(client.Email(), client.Balance)
	h.sendJSON(w, PayStatementResponse{
		TotalPaid: total.StringFixed(2),
		Balance:   client.Balance.StringFixed(2),
		Message:   "Statement paid in full",
	}, http.StatusOK)
}

type LimitIncreaseRequest struct {
	NewLimit string `json:"new_limit"`
}

func (h *Handler) handleRequestLimitIncrease(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	start := time.Now()
	var req LimitIncreaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	newLimit, ok := h.parseAmount(w, "new_limit", req.NewLimit)
	if !ok {
		return
	}

	err := h.bank.Cards.RequestLimitIncrease(r.Context(), client, newLimit)
	h.observe("request_limit_increase", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, map[string]string{
		"message":         "Limit increase request submitted, awaiting approval",
		"requested_limit": client.RequestedLimit.StringFixed(2),
	}, http.StatusOK)
}

func (h *Handler) handleRequestClosure(w http.ResponseWriter, r *http.Request, session *bank.Session, client *domain.ClientAccount) {
	start := time.Now()
	err := h.bank.Ledger.RequestClosure(r.Context(), client)
	h.observe("request_closure", start, err)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, map[string]string{
		"message": "Closure request received and will be processed shortly",
	}, http.StatusOK)
}
