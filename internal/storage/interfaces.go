package storage

import (
	"context"

	"blibank/internal/domain"
)

// AccountStore is the persistence collaborator for the directory. The
// contract is load-all-at-start and full-snapshot write-through on every
// mutation; any row store that can replay the account schema qualifies.
type AccountStore interface {
	Load(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, accounts []domain.Account) error
}

// StatementStore persists per-client card statements, keyed by the client's
// email. Statements are append-only and deleted wholesale on settlement or
// on approved account closure.
type StatementStore interface {
	Append(ctx context.Context, email string, rec domain.PurchaseRecord) error
	Load(ctx context.Context, email string) (*domain.Statement, error)
	Delete(ctx context.Context, email string) error
}
