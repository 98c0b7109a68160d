package bank

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"blibank/internal/directory"
	"blibank/internal/domain"
	"blibank/internal/service"
	"blibank/internal/storage"
)

// ApprovalWorkflow is the administrator side of the bank: it scans the
// directory for pending requests and applies decisions.
type ApprovalWorkflow struct {
	dir        *directory.Directory
	cards      *CardService
	statements storage.StatementStore
	notifier   *service.Notifier
	logger     *slog.Logger
}

func NewApprovalWorkflow(
	dir *directory.Directory,
	cards *CardService,
	statements storage.StatementStore,
	notifier *service.Notifier,
	logger *slog.Logger,
) *ApprovalWorkflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalWorkflow{
		dir:        dir,
		cards:      cards,
		statements: statements,
		notifier:   notifier,
		logger:     logger,
	}
}

// PendingCards lists clients with a card request awaiting approval, in
// directory order.
func (w *ApprovalWorkflow) PendingCards() []*domain.ClientAccount {
	var pending []*domain.ClientAccount
	for _, client := range w.dir.Clients() {
		if client.CardStatus == domain.CardPending {
			pending = append(pending, client)
		}
	}
	return pending
}

func (w *ApprovalWorkflow) ApproveCardFor(ctx context.Context, email string, initialLimit decimal.Decimal) error {
	if initialLimit.IsNegative() {
		return domain.ErrInvalidLimit
	}
	client, err := w.dir.ClientByEmail(email)
	if err != nil {
		return err
	}
	if err := w.cards.ApproveCard(ctx, client, initialLimit); err != nil {
		return err
	}
	w.notifier.CardApproved(ctx, client.Email(), client.Name(), client.CreditLimit)
	return nil
}

// PendingLimitIncreases lists clients with an outstanding limit increase
// request.
func (w *ApprovalWorkflow) PendingLimitIncreases() []*domain.ClientAccount {
	var pending []*domain.ClientAccount
	for _, client := range w.dir.Clients() {
		if client.RequestedLimit.GreaterThan(decimal.Zero) {
			pending = append(pending, client)
		}
	}
	return pending
}

func (w *ApprovalWorkflow) ApproveLimitIncreaseFor(ctx context.Context, email string) error {
	client, err := w.dir.ClientByEmail(email)
	if err != nil {
		return err
	}
	if err := w.cards.ApproveLimitIncrease(ctx, client); err != nil {
		return err
	}
	w.notifier.LimitIncreaseApproved(ctx, client.Email(), client.Name(), client.CreditLimit)
	return nil
}

// ClosureRequests lists clients who asked to close their account.
func (w *ApprovalWorkflow) ClosureRequests() []*domain.ClientAccount {
	var requests []*domain.ClientAccount
	for _, client := range w.dir.Clients() {
		if client.ClosureRequested {
			requests = append(requests, client)
		}
	}
	return requests
}

// ApproveClosure removes an account that requested closure. Eligibility is
// re-checked on the administrator side, mirroring the self-service check, in
// case state changed after the request was filed.
func (w *ApprovalWorkflow) ApproveClosure(ctx context.Context, email string) error {
	client, err := w.dir.ClientByEmail(email)
	if err != nil {
		return err
	}
	if !client.ClosureRequested {
		return fmt.Errorf("%w: closure was not requested", domain.ErrInvalidState)
	}
	if !client.Balance.IsZero() || !client.CardDebt.IsZero() {
		return domain.ErrNotEligible
	}

	if err := w.dir.Remove(ctx, client.Email()); err != nil {
		return err
	}
	if err := w.statements.Delete(ctx, client.Email()); err != nil {
		w.logger.Warn("Failed to delete residual statement",
			slog.String("email", client.Email()),
			slog.String("error", err.Error()))
	}

	w.logger.InfoContext(ctx, "Account closure approved", slog.String("email", client.Email()))
	w.notifier.AccountClosed(ctx, client.Email(), client.Name())
	return nil
}

// Clients is the read-only listing of every client account.
func (w *ApprovalWorkflow) Clients() []*domain.ClientAccount {
	return w.dir.Clients()
}

// ClientDetail is the administrator's detailed projection of one client.
type ClientDetail struct {
	Name             string
	Surname          string
	Email            string
	CPF              string
	Balance          decimal.Decimal
	CardStatus       domain.CardStatus
	CreditLimit      decimal.Decimal
	CardDebt         decimal.Decimal
	RequestedLimit   decimal.Decimal
	ClosureRequested bool
}

func (w *ApprovalWorkflow) ClientDetail(email string) (ClientDetail, error) {
	client, err := w.dir.ClientByEmail(email)
	if err != nil {
		return ClientDetail{}, err
	}
	return ClientDetail{
		Name:             client.Name(),
		Surname:          client.Surname(),
		Email:            client.Email(),
		CPF:              client.FormattedCPF(),
		Balance:          client.Balance,
		CardStatus:       client.CardStatus,
		CreditLimit:      client.CreditLimit,
		CardDebt:         client.CardDebt,
		RequestedLimit:   client.RequestedLimit,
		ClosureRequested: client.ClosureRequested,
	}, nil
}
