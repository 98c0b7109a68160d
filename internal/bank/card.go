package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"blibank/internal/directory"
	"blibank/internal/domain"
	"blibank/internal/storage"
)

// errNoChange short-circuits an Update whose preconditions make the call a
// no-op rather than a failure.
var errNoChange = errors.New("no change")

// CardService drives the credit card lifecycle: none -> pending -> approved.
// Once approved a card never moves back; the only exit is account closure.
// State preconditions are checked inside the directory lock so concurrent
// sessions cannot both observe the same pre-transition state.
type CardService struct {
	dir        *directory.Directory
	statements storage.StatementStore
	logger     *slog.Logger
}

func NewCardService(dir *directory.Directory, statements storage.StatementStore, logger *slog.Logger) *CardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardService{
		dir:        dir,
		statements: statements,
		logger:     logger,
	}
}

// RequestCard moves a card from none to pending. Calling it again while
// pending or approved is a no-op, not an error: requested reports whether a
// transition happened and the caller reads CardStatus to phrase the message.
func (s *CardService) RequestCard(ctx context.Context, client *domain.ClientAccount) (requested bool, err error) {
	err = s.dir.Update(ctx, func() (func(), error) {
		if client.CardStatus != domain.CardNone {
			return nil, errNoChange
		}
		client.CardStatus = domain.CardPending
		return func() { client.CardStatus = domain.CardNone }, nil
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Card requested", slog.String("email", client.Email()))
	return true, nil
}

// ApproveCard transitions pending -> approved with the administrator-chosen
// initial limit and zero debt.
func (s *CardService) ApproveCard(ctx context.Context, client *domain.ClientAccount, initialLimit decimal.Decimal) error {
	if initialLimit.IsNegative() {
		return domain.ErrInvalidLimit
	}

	err := s.dir.Update(ctx, func() (func(), error) {
		if client.CardStatus != domain.CardPending {
			return nil, domain.ErrCardNotPending
		}
		prevLimit, prevDebt := client.CreditLimit, client.CardDebt
		client.CardStatus = domain.CardApproved
		client.CreditLimit = domain.RoundMoney(initialLimit)
		client.CardDebt = decimal.Zero
		return func() {
			client.CardStatus = domain.CardPending
			client.CreditLimit = prevLimit
			client.CardDebt = prevDebt
		}, nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Card approved",
		slog.String("email", client.Email()),
		slog.String("limit", client.CreditLimit.StringFixed(2)))
	return nil
}

// Purchase authorizes a card purchase against the available credit and
// appends it to the client's open statement. The debt lands in the snapshot
// first; the statement record lands second, and a failed append compensates
// the debt back out so the statement total never exceeds the debt.
func (s *CardService) Purchase(ctx context.Context, client *domain.ClientAccount, amount decimal.Decimal, merchant, description string) (domain.PurchaseRecord, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.PurchaseRecord{}, domain.ErrInvalidAmount
	}

	rec := domain.NewPurchase(merchant, description, amount)
	err := s.dir.Update(ctx, func() (func(), error) {
		if client.CardStatus != domain.CardApproved {
			return nil, domain.ErrCardNotApproved
		}
		if rec.Amount.GreaterThan(client.AvailableCredit()) {
			return nil, domain.ErrLimitExceeded
		}
		prevDebt := client.CardDebt
		client.CardDebt = domain.RoundMoney(client.CardDebt.Add(rec.Amount))
		return func() { client.CardDebt = prevDebt }, nil
	})
	if err != nil {
		return domain.PurchaseRecord{}, err
	}

	if err := s.statements.Append(ctx, client.Email(), rec); err != nil {
		compErr := s.dir.Update(ctx, func() (func(), error) {
			prevDebt := client.CardDebt
			client.CardDebt = domain.RoundMoney(client.CardDebt.Sub(rec.Amount))
			return func() { client.CardDebt = prevDebt }, nil
		})
		if compErr != nil {
			s.logger.Error("Failed to compensate debt after statement append failure",
				slog.String("email", client.Email()),
				slog.String("error", compErr.Error()))
		}
		return domain.PurchaseRecord{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.logger.InfoContext(ctx, "Purchase authorized",
		slog.String("email", client.Email()),
		slog.String("merchant", rec.Merchant),
		slog.String("amount", rec.Amount.StringFixed(2)),
		slog.String("debt", client.CardDebt.StringFixed(2)))
	return rec, nil
}

// PayStatement settles the whole open statement against the balance. There
// is no partial settlement: the full total is paid, the debt zeroed and the
// statement deleted, or nothing changes. The snapshot is written before the
// statement file is deleted, so a failed write leaves the statement (and the
// debt) intact for a later retry.
func (s *CardService) PayStatement(ctx context.Context, client *domain.ClientAccount) (decimal.Decimal, error) {
	if client.CardStatus != domain.CardApproved {
		return decimal.Zero, domain.ErrCardNotApproved
	}

	statement, err := s.statements.Load(ctx, client.Email())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if statement.Empty() {
		return decimal.Zero, domain.ErrNoStatement
	}
	total := statement.Total()

	err = s.dir.Update(ctx, func() (func(), error) {
		if total.GreaterThan(client.Balance) {
			return nil, domain.ErrInsufficientFunds
		}
		prevBalance, prevDebt := client.Balance, client.CardDebt
		client.Balance = domain.RoundMoney(client.Balance.Sub(total))
		client.CardDebt = decimal.Zero
		return func() {
			client.Balance = prevBalance
			client.CardDebt = prevDebt
		}, nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.statements.Delete(ctx, client.Email()); err != nil {
		s.logger.Warn("Failed to delete settled statement",
			slog.String("email", client.Email()),
			slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "Statement settled",
		slog.String("email", client.Email()),
		slog.String("total", total.StringFixed(2)),
		slog.String("balance", client.Balance.StringFixed(2)))
	return total, nil
}

// RequestLimitIncrease files a limit increase request for administrator
// approval. Only one request may be outstanding at a time and it must exceed
// the current limit when filed.
func (s *CardService) RequestLimitIncrease(ctx context.Context, client *domain.ClientAccount, newLimit decimal.Decimal) error {
	err := s.dir.Update(ctx, func() (func(), error) {
		if client.CardStatus != domain.CardApproved {
			return nil, domain.ErrCardNotApproved
		}
		if newLimit.LessThanOrEqual(client.CreditLimit) {
			return nil, domain.ErrLimitNotIncreasing
		}
		if !client.RequestedLimit.IsZero() {
			return nil, domain.ErrLimitRequestPending
		}
		client.RequestedLimit = domain.RoundMoney(newLimit)
		return func() { client.RequestedLimit = decimal.Zero }, nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Limit increase requested",
		slog.String("email", client.Email()),
		slog.String("requested", client.RequestedLimit.StringFixed(2)))
	return nil
}

// ApproveLimitIncrease applies an outstanding limit increase request.
func (s *CardService) ApproveLimitIncrease(ctx context.Context, client *domain.ClientAccount) error {
	err := s.dir.Update(ctx, func() (func(), error) {
		if client.RequestedLimit.IsZero() {
			return nil, fmt.Errorf("%w: no limit increase request outstanding", domain.ErrInvalidState)
		}
		prevLimit, prevRequested := client.CreditLimit, client.RequestedLimit
		client.CreditLimit = client.RequestedLimit
		client.RequestedLimit = decimal.Zero
		return func() {
			client.CreditLimit = prevLimit
			client.RequestedLimit = prevRequested
		}, nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Limit increase approved",
		slog.String("email", client.Email()),
		slog.String("limit", client.CreditLimit.StringFixed(2)))
	return nil
}

// CardDetail is the read-only card projection shown to the client.
type CardDetail struct {
	Status          domain.CardStatus
	TotalLimit      decimal.Decimal
	AvailableCredit decimal.Decimal
	CurrentDebt     decimal.Decimal
	Statement       *domain.Statement
}

func (s *CardService) Detail(ctx context.Context, client *domain.ClientAccount) (CardDetail, error) {
	if client.CardStatus != domain.CardApproved {
		return CardDetail{}, domain.ErrCardNotApproved
	}
	statement, err := s.statements.Load(ctx, client.Email())
	if err != nil {
		return CardDetail{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return CardDetail{
		Status:          client.CardStatus,
		TotalLimit:      client.CreditLimit,
		AvailableCredit: client.AvailableCredit(),
		CurrentDebt:     client.CardDebt,
		Statement:       statement,
	}, nil
}
