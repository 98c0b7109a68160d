package bank

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blibank/internal/directory"
	"blibank/internal/domain"
	"blibank/internal/service"
	"blibank/internal/storage"
	"blibank/pkg/validator"
)

// Session is one authenticated account. Sessions are explicit values created
// on login and torn down on logout; nothing in the core depends on a global
// current session, so concurrent sessions are supported.
type Session struct {
	ID        string
	Account   domain.Account
	StartedAt time.Time
}

// Client returns the session's account as a client, or an error when an
// administrator is logged in.
func (s *Session) Client() (*domain.ClientAccount, error) {
	client, ok := s.Account.(*domain.ClientAccount)
	if !ok {
		return nil, fmt.Errorf("%w: operation requires a client account", domain.ErrInvalidState)
	}
	return client, nil
}

func (s *Session) IsAdmin() bool {
	_, ok := s.Account.(*domain.AdminAccount)
	return ok
}

// Bank is the facade the presentation layer talks to. It owns registration,
// authentication and the session registry, and exposes the operation
// services wired to one directory.
type Bank struct {
	dir       *directory.Directory
	validator *validator.RegistrationValidator
	logger    *slog.Logger

	Ledger      *Ledger
	Cards       *CardService
	Investments *InvestmentEngine
	Approvals   *ApprovalWorkflow

	mu       sync.RWMutex
	sessions map[string]*Session
}

func New(
	dir *directory.Directory,
	statements storage.StatementStore,
	rng *rand.Rand,
	notifier *service.Notifier,
	logger *slog.Logger,
) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	cards := NewCardService(dir, statements, logger)
	return &Bank{
		dir:         dir,
		validator:   validator.NewRegistrationValidator(),
		logger:      logger,
		Ledger:      NewLedger(dir, statements, logger),
		Cards:       cards,
		Investments: NewInvestmentEngine(dir, rng, logger),
		Approvals:   NewApprovalWorkflow(dir, cards, statements, notifier, logger),
		sessions:    make(map[string]*Session),
	}
}

// Register validates the fields, hashes the password and inserts the new
// account. Email and CPF uniqueness are enforced by the directory under its
// lock.
func (b *Bank) Register(ctx context.Context, name, surname, email, password, cpf string, kind domain.Kind) (domain.Account, error) {
	if err := b.validator.Validate(name, surname, email, password, cpf); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var account domain.Account
	switch kind {
	case domain.KindClient:
		account = domain.NewClientAccount(name, surname, email, string(hash), cpf)
	case domain.KindAdmin:
		account = domain.NewAdminAccount(name, surname, email, string(hash), cpf)
	default:
		return nil, fmt.Errorf("%w: unknown account kind %q", domain.ErrValidation, kind)
	}

	if err := b.dir.Register(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login authenticates and opens a session. Unknown emails and wrong
// passwords produce the same error so the response does not reveal which
// accounts exist.
func (b *Bank) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := b.dir.FindByEmail(email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := b.verifyPassword(ctx, account, password); err != nil {
		return nil, err
	}

	session := &Session{
		ID:        uuid.NewString(),
		Account:   account,
		StartedAt: time.Now().UTC(),
	}
	b.mu.Lock()
	b.sessions[session.ID] = session
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "Login",
		slog.String("email", account.Email()),
		slog.String("session_id", session.ID))
	return session, nil
}

// Logout tears the session down. Logging out an already-closed session is a
// no-op.
func (b *Bank) Logout(sessionID string) {
	b.mu.Lock()
	delete(b.sessions, sessionID)
	b.mu.Unlock()
}

// Session resolves an active session by id.
func (b *Bank) Session(id string) (*Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	session, ok := b.sessions[id]
	return session, ok
}

// verifyPassword accepts bcrypt hashes and, for rows imported from the
// legacy store, plaintext credentials. A successful plaintext login rewrites
// the credential hashed so the plaintext disappears over time.
func (b *Bank) verifyPassword(ctx context.Context, account domain.Account, password string) error {
	credential := account.Credential()
	if strings.HasPrefix(credential, "$2") {
		if bcrypt.CompareHashAndPassword([]byte(credential), []byte(password)) != nil {
			return domain.ErrInvalidCredentials
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(credential), []byte(password)) != 1 {
		return domain.ErrInvalidCredentials
	}
	b.upgradeCredential(ctx, account, password)
	return nil
}

func (b *Bank) upgradeCredential(ctx context.Context, account domain.Account, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return
	}

	var identity *domain.Identity
	switch a := account.(type) {
	case *domain.ClientAccount:
		identity = &a.Identity
	case *domain.AdminAccount:
		identity = &a.Identity
	default:
		return
	}

	prev := identity.Credential()
	err = b.dir.Update(ctx, func() (func(), error) {
		identity.SetCredential(string(hash))
		return func() { identity.SetCredential(prev) }, nil
	})
	if err != nil {
		b.logger.Warn("Failed to upgrade legacy credential",
			slog.String("email", account.Email()),
			slog.String("error", err.Error()))
		return
	}
	b.logger.InfoContext(ctx, "Legacy credential upgraded to hash",
		slog.String("email", account.Email()))
}
