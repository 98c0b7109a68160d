// Package directory holds the authoritative in-memory account collection,
// mirrored to persistent storage with a full-snapshot write-through on every
// mutation.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"blibank/internal/domain"
	"blibank/internal/storage"
)

// Directory indexes accounts by email (primary key, case-insensitive) and by
// CPF. No two accounts ever share either. All mutations run under the
// directory lock so uniqueness check plus insert, and both legs of a
// transfer, are mutually exclusive across sessions.
type Directory struct {
	mu      sync.RWMutex
	store   storage.AccountStore
	logger  *slog.Logger
	byEmail map[string]domain.Account
	byCPF   map[string]string
	order   []string
}

// Open loads all accounts from the store and builds the indexes. Duplicate
// rows lose to the first occurrence and are dropped with a warning.
func Open(ctx context.Context, store storage.AccountStore, logger *slog.Logger) (*Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Directory{
		store:   store,
		logger:  logger,
		byEmail: make(map[string]domain.Account),
		byCPF:   make(map[string]string),
	}

	accounts, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	for _, account := range accounts {
		email := account.Email()
		if _, exists := d.byEmail[email]; exists {
			logger.Warn("Dropping account with duplicate email", slog.String("email", email))
			continue
		}
		if other, exists := d.byCPF[account.CPF()]; exists && account.CPF() != "" {
			logger.Warn("Dropping account with duplicate cpf",
				slog.String("email", email),
				slog.String("existing", other))
			continue
		}
		d.insertLocked(account)
	}

	logger.Info("Directory loaded", slog.Int("accounts", len(d.order)))
	return d, nil
}

// Register checks uniqueness, inserts and writes through. On a persistence
// failure the insert is rolled back so memory and disk never diverge.
func (d *Directory) Register(ctx context.Context, account domain.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[account.Email()]; exists {
		return domain.ErrDuplicateEmail
	}
	if _, exists := d.byCPF[account.CPF()]; exists {
		return domain.ErrDuplicateCPF
	}

	d.insertLocked(account)
	if err := d.saveLocked(ctx); err != nil {
		d.removeLocked(account.Email())
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	d.logger.Info("Account registered",
		slog.String("email", account.Email()),
		slog.String("kind", string(account.Kind())))
	return nil
}

// Update runs fn under the directory write lock and then writes the snapshot
// through the store. fn returns a rollback that undoes its in-memory changes;
// the rollback is applied when the write-through fails, and the error wraps
// ErrPersistence. When fn itself returns an error nothing is persisted.
func (d *Directory) Update(ctx context.Context, fn func() (rollback func(), err error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rollback, err := fn()
	if err != nil {
		return err
	}
	if err := d.saveLocked(ctx); err != nil {
		if rollback != nil {
			rollback()
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Remove deletes an account and writes through, restoring the account on a
// persistence failure.
func (d *Directory) Remove(ctx context.Context, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	email = domain.NormalizeEmail(email)
	account, exists := d.byEmail[email]
	if !exists {
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, email)
	}

	pos := d.removeLocked(email)
	if err := d.saveLocked(ctx); err != nil {
		d.insertAtLocked(account, pos)
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	d.logger.Info("Account removed", slog.String("email", email))
	return nil
}

func (d *Directory) FindByEmail(email string) (domain.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	account, exists := d.byEmail[domain.NormalizeEmail(email)]
	if !exists {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, email)
	}
	return account, nil
}

// ClientByEmail resolves an email to a client account, distinguishing
// unknown accounts from administrator accounts.
func (d *Directory) ClientByEmail(email string) (*domain.ClientAccount, error) {
	account, err := d.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	client, ok := account.(*domain.ClientAccount)
	if !ok {
		return nil, domain.ErrRecipientNotClient
	}
	return client, nil
}

// Clients returns all client accounts in directory insertion order.
func (d *Directory) Clients() []*domain.ClientAccount {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var clients []*domain.ClientAccount
	for _, email := range d.order {
		if client, ok := d.byEmail[email].(*domain.ClientAccount); ok {
			clients = append(clients, client)
		}
	}
	return clients
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

func (d *Directory) insertLocked(account domain.Account) {
	d.insertAtLocked(account, len(d.order))
}

func (d *Directory) insertAtLocked(account domain.Account, pos int) {
	d.byEmail[account.Email()] = account
	d.byCPF[account.CPF()] = account.Email()
	if pos >= len(d.order) {
		d.order = append(d.order, account.Email())
		return
	}
	d.order = append(d.order[:pos], append([]string{account.Email()}, d.order[pos:]...)...)
}

func (d *Directory) removeLocked(email string) int {
	account := d.byEmail[email]
	delete(d.byEmail, email)
	delete(d.byCPF, account.CPF())
	for i, e := range d.order {
		if e == email {
			d.order = append(d.order[:i], d.order[i+1:]...)
			return i
		}
	}
	return len(d.order)
}

func (d *Directory) saveLocked(ctx context.Context) error {
	accounts := make([]domain.Account, 0, len(d.order))
	for _, email := range d.order {
		accounts = append(accounts, d.byEmail[email])
	}
	return d.store.Save(ctx, accounts)
}
