package directory

import (
	"context"
	"errors"
	"testing"

	"blibank/internal/domain"
	"blibank/internal/storage/memory"
)

func openTestDirectory(t *testing.T) (*Directory, *memory.AccountStore) {
	t.Helper()
	store := memory.NewAccountStore()
	dir, err := Open(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return dir, store
}

func client(email, cpf string) *domain.ClientAccount {
	return domain.NewClientAccount("Ana", "Silva", email, "password123", cpf)
}

func TestDirectory_Register_WritesThrough(t *testing.T) {
	dir, store := openTestDirectory(t)

	if err := dir.Register(context.Background(), client("ana@example.com", "12345678901")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Saves() != 1 {
		t.Errorf("expected 1 snapshot write, got %d", store.Saves())
	}

	account, err := dir.FindByEmail("ANA@Example.com")
	if err != nil {
		t.Fatalf("lookup must be case-insensitive: %v", err)
	}
	if account.Email() != "ana@example.com" {
		t.Errorf("expected normalized email, got %s", account.Email())
	}
}

func TestDirectory_Register_EnforcesUniqueness(t *testing.T) {
	dir, _ := openTestDirectory(t)
	ctx := context.Background()

	if err := dir.Register(ctx, client("ana@example.com", "12345678901")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := dir.Register(ctx, client("Ana@Example.COM", "10987654321")); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("expected duplicate email, got %v", err)
	}
	if err := dir.Register(ctx, client("bia@example.com", "12345678901")); !errors.Is(err, domain.ErrDuplicateCPF) {
		t.Errorf("expected duplicate cpf, got %v", err)
	}
	if dir.Len() != 1 {
		t.Errorf("expected directory size 1, got %d", dir.Len())
	}
}

func TestDirectory_Register_RollsBackOnPersistenceFailure(t *testing.T) {
	dir, store := openTestDirectory(t)

	store.FailNextSave(errors.New("disk full"))
	err := dir.Register(context.Background(), client("ana@example.com", "12345678901"))
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if dir.Len() != 0 {
		t.Errorf("failed registration must not stay in memory, got %d accounts", dir.Len())
	}

	// The same registration succeeds once the store recovers.
	if err := dir.Register(context.Background(), client("ana@example.com", "12345678901")); err != nil {
		t.Errorf("unexpected error after store recovery: %v", err)
	}
}

func TestDirectory_Remove(t *testing.T) {
	dir, _ := openTestDirectory(t)
	ctx := context.Background()

	if err := dir.Register(ctx, client("ana@example.com", "12345678901")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dir.Remove(ctx, "ana@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := dir.FindByEmail("ana@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found after removal, got %v", err)
	}

	// Email and CPF become available again.
	if err := dir.Register(ctx, client("ana@example.com", "12345678901")); err != nil {
		t.Errorf("unexpected error re-registering after removal: %v", err)
	}

	if err := dir.Remove(ctx, "ghost@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found removing unknown account, got %v", err)
	}
}

func TestDirectory_Remove_RestoresOnPersistenceFailure(t *testing.T) {
	dir, store := openTestDirectory(t)
	ctx := context.Background()

	if err := dir.Register(ctx, client("ana@example.com", "12345678901")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.FailNextSave(errors.New("disk full"))
	if err := dir.Remove(ctx, "ana@example.com"); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if _, err := dir.FindByEmail("ana@example.com"); err != nil {
		t.Errorf("account must still exist after failed removal: %v", err)
	}
}

func TestDirectory_Update_RollsBackOnPersistenceFailure(t *testing.T) {
	dir, store := openTestDirectory(t)
	ctx := context.Background()

	acc := client("ana@example.com", "12345678901")
	if err := dir.Register(ctx, acc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.FailNextSave(errors.New("disk full"))
	err := dir.Update(ctx, func() (func(), error) {
		acc.ClosureRequested = true
		return func() { acc.ClosureRequested = false }, nil
	})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if acc.ClosureRequested {
		t.Error("expected mutation rolled back")
	}
}

func TestDirectory_Clients_InsertionOrder(t *testing.T) {
	dir, _ := openTestDirectory(t)
	ctx := context.Background()

	if err := dir.Register(ctx, client("ana@example.com", "11111111111")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dir.Register(ctx, domain.NewAdminAccount("Rita", "Souza", "root@blibank.com", "password123", "22222222222")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dir.Register(ctx, client("bia@example.com", "33333333333")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clients := dir.Clients()
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	if clients[0].Email() != "ana@example.com" || clients[1].Email() != "bia@example.com" {
		t.Errorf("unexpected order: %s, %s", clients[0].Email(), clients[1].Email())
	}
}

func TestDirectory_Open_SkipsDuplicateRows(t *testing.T) {
	store := memory.NewAccountStore()
	seed := []domain.Account{
		client("ana@example.com", "12345678901"),
		client("ana@example.com", "10987654321"),
		client("bia@example.com", "12345678901"),
	}
	if err := store.Save(context.Background(), seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dir, err := Open(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.Len() != 1 {
		t.Errorf("expected duplicates dropped on load, got %d accounts", dir.Len())
	}
}
