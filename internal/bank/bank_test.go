package bank

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"blibank/internal/directory"
	"blibank/internal/domain"
	"blibank/internal/service"
	"blibank/internal/storage/memory"
)

type testEnv struct {
	bank       *Bank
	dir        *directory.Directory
	accounts   *memory.AccountStore
	statements *memory.StatementStore
	emails     *service.MockEmailService
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	accounts := memory.NewAccountStore()
	statements := memory.NewStatementStore()

	dir, err := directory.Open(context.Background(), accounts, nil)
	if err != nil {
		t.Fatalf("unexpected error opening directory: %v", err)
	}

	emails := &service.MockEmailService{}
	b := New(dir, statements, rand.New(rand.NewSource(1)), service.NewNotifier(emails, nil), nil)

	return &testEnv{
		bank:       b,
		dir:        dir,
		accounts:   accounts,
		statements: statements,
		emails:     emails,
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// mustClient registers a client directly in the directory, bypassing bcrypt
// so tests stay fast.
func mustClient(t *testing.T, env *testEnv, email, cpf, balance string) *domain.ClientAccount {
	t.Helper()
	client := domain.NewClientAccount("Ana", "Silva", email, "password123", cpf)
	client.Balance = dec(t, balance)
	if err := env.dir.Register(context.Background(), client); err != nil {
		t.Fatalf("unexpected error registering client: %v", err)
	}
	return client
}

func mustAdmin(t *testing.T, env *testEnv, email, cpf string) *domain.AdminAccount {
	t.Helper()
	admin := domain.NewAdminAccount("Rita", "Souza", email, "password123", cpf)
	if err := env.dir.Register(context.Background(), admin); err != nil {
		t.Fatalf("unexpected error registering admin: %v", err)
	}
	return admin
}

func TestBank_Register_HashesPassword(t *testing.T) {
	env := setup(t)

	account, err := env.bank.Register(context.Background(),
		"Ana", "Silva", "ana@example.com", "supersecret", "12345678901", domain.KindClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Credential() == "supersecret" {
		t.Error("expected password to be stored hashed, got plaintext")
	}
	if account.Email() != "ana@example.com" {
		t.Errorf("expected normalized email, got %q", account.Email())
	}
}

func TestBank_Register_RejectsInvalidFields(t *testing.T) {
	env := setup(t)

	_, err := env.bank.Register(context.Background(),
		"Ana", "Silva", "not-an-email", "short", "123", domain.KindClient)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if env.dir.Len() != 0 {
		t.Errorf("expected empty directory, got %d accounts", env.dir.Len())
	}
}

func TestBank_Register_DuplicateEmailAndCPF(t *testing.T) {
	env := setup(t)

	_, err := env.bank.Register(context.Background(),
		"Ana", "Silva", "ana@example.com", "supersecret", "12345678901", domain.KindClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same email in different case.
	_, err = env.bank.Register(context.Background(),
		"Bia", "Souza", "ANA@Example.com", "supersecret", "10987654321", domain.KindClient)
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("expected duplicate email error, got %v", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected error to match ErrConflict, got %v", err)
	}

	_, err = env.bank.Register(context.Background(),
		"Bia", "Souza", "bia@example.com", "supersecret", "12345678901", domain.KindClient)
	if !errors.Is(err, domain.ErrDuplicateCPF) {
		t.Errorf("expected duplicate cpf error, got %v", err)
	}

	if env.dir.Len() != 1 {
		t.Errorf("expected directory size 1, got %d", env.dir.Len())
	}
}

func TestBank_LoginLogout(t *testing.T) {
	env := setup(t)
	_, err := env.bank.Register(context.Background(),
		"Ana", "Silva", "ana@example.com", "supersecret", "12345678901", domain.KindClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := env.bank.Login(context.Background(), "ana@example.com", "wrongpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
	if _, err := env.bank.Login(context.Background(), "nobody@example.com", "supersecret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials for unknown email, got %v", err)
	}

	session, err := env.bank.Login(context.Background(), "Ana@Example.com", "supersecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := env.bank.Session(session.ID); !ok {
		t.Error("expected session to be active after login")
	}

	env.bank.Logout(session.ID)
	if _, ok := env.bank.Session(session.ID); ok {
		t.Error("expected session to be gone after logout")
	}
}

func TestBank_Login_UpgradesLegacyPlaintextCredential(t *testing.T) {
	env := setup(t)
	client := mustClient(t, env, "ana@example.com", "12345678901", "0.00")

	session, err := env.bank.Login(context.Background(), "ana@example.com", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Account.Email() != client.Email() {
		t.Errorf("expected session for %s, got %s", client.Email(), session.Account.Email())
	}
	if client.Credential() == "password123" {
		t.Error("expected legacy credential to be rewritten as a hash")
	}

	// The upgraded hash still authenticates.
	if _, err := env.bank.Login(context.Background(), "ana@example.com", "password123"); err != nil {
		t.Errorf("unexpected error on second login: %v", err)
	}
}

func TestSession_ClientAndAdmin(t *testing.T) {
	env := setup(t)
	mustClient(t, env, "ana@example.com", "12345678901", "0.00")
	mustAdmin(t, env, "root@blibank.com", "10987654321")

	clientSession, err := env.bank.Login(context.Background(), "ana@example.com", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := clientSession.Client(); err != nil {
		t.Errorf("unexpected error resolving client: %v", err)
	}
	if clientSession.IsAdmin() {
		t.Error("client session must not be admin")
	}

	adminSession, err := env.bank.Login(context.Background(), "root@blibank.com", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !adminSession.IsAdmin() {
		t.Error("expected admin session")
	}
	if _, err := adminSession.Client(); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected state error resolving admin as client, got %v", err)
	}
}
