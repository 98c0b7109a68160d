// Package bank implements the ledger engine: balance operations, the credit
// card state machine, investments and the administrator approval workflow.
package bank

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"blibank/internal/directory"
	"blibank/internal/domain"
	"blibank/internal/storage"
)

// Ledger performs balance mutations on client accounts. Every successful
// mutation is written through the directory snapshot; on a persistence
// failure the in-memory change is rolled back before the error is returned.
type Ledger struct {
	dir        *directory.Directory
	statements storage.StatementStore
	logger     *slog.Logger
}

func NewLedger(dir *directory.Directory, statements storage.StatementStore, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		dir:        dir,
		statements: statements,
		logger:     logger,
	}
}

func (l *Ledger) Deposit(ctx context.Context, client *domain.ClientAccount, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}

	err := l.dir.Update(ctx, func() (func(), error) {
		prev := client.Balance
		client.Balance = domain.RoundMoney(client.Balance.Add(amount))
		return func() { client.Balance = prev }, nil
	})
	if err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "Deposit completed",
		slog.String("email", client.Email()),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("balance", client.Balance.StringFixed(2)))
	return nil
}

func (l *Ledger) Withdraw(ctx context.Context, client *domain.ClientAccount, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}

	err := l.dir.Update(ctx, func() (func(), error) {
		if amount.GreaterThan(client.Balance) {
			return nil, domain.ErrInsufficientFunds
		}
		prev := client.Balance
		client.Balance = domain.RoundMoney(client.Balance.Sub(amount))
		return func() { client.Balance = prev }, nil
	})
	if err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "Withdrawal completed",
		slog.String("email", client.Email()),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("balance", client.Balance.StringFixed(2)))
	return nil
}

// Transfer moves amount from sender to the account registered under
// recipientEmail. Both balances change in one critical section and persist
// in one snapshot write, so either both sides land on disk or neither does.
func (l *Ledger) Transfer(ctx context.Context, sender *domain.ClientAccount, amount decimal.Decimal, recipientEmail string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}
	if domain.NormalizeEmail(recipientEmail) == sender.Email() {
		return domain.ErrSelfTransfer
	}

	account, err := l.dir.FindByEmail(recipientEmail)
	if err != nil {
		return domain.ErrRecipientNotFound
	}
	recipient, ok := account.(*domain.ClientAccount)
	if !ok {
		return domain.ErrRecipientNotClient
	}

	err = l.dir.Update(ctx, func() (func(), error) {
		if amount.GreaterThan(sender.Balance) {
			return nil, domain.ErrInsufficientFunds
		}
		prevSender, prevRecipient := sender.Balance, recipient.Balance
		sender.Balance = domain.RoundMoney(sender.Balance.Sub(amount))
		recipient.Balance = domain.RoundMoney(recipient.Balance.Add(amount))
		return func() {
			sender.Balance = prevSender
			recipient.Balance = prevRecipient
		}, nil
	})
	if err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "Transfer completed",
		slog.String("from", sender.Email()),
		slog.String("to", recipient.Email()),
		slog.String("amount", amount.StringFixed(2)))
	return nil
}

// RequestClosure flags the account for administrator-side closure. The
// account must be fully settled: zero balance, zero card debt and no open
// statement. Comparisons are exact; balances are always rounded to cents so
// no epsilon is needed.
func (l *Ledger) RequestClosure(ctx context.Context, client *domain.ClientAccount) error {
	statement, err := l.statements.Load(ctx, client.Email())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	err = l.dir.Update(ctx, func() (func(), error) {
		if client.ClosureRequested {
			return nil, domain.ErrClosureAlreadyRequested
		}
		if !client.Balance.IsZero() {
			return nil, domain.ErrNonZeroBalance
		}
		if !client.CardDebt.IsZero() {
			return nil, domain.ErrOutstandingCardDebt
		}
		if !statement.Empty() {
			return nil, domain.ErrOpenStatement
		}
		client.ClosureRequested = true
		return func() { client.ClosureRequested = false }, nil
	})
	if err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "Closure requested", slog.String("email", client.Email()))
	return nil
}
