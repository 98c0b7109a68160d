package bank

import (
	"context"
	"errors"
	"testing"

	"blibank/internal/domain"
)

func TestApprovalWorkflow_PendingCards(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	first := mustClient(t, env, "ana@example.com", "12345678901", "0.00")
	mustClient(t, env, "bia@example.com", "10987654321", "0.00")
	third := mustClient(t, env, "caio@example.com", "11122233344", "0.00")

	if _, err := env.bank.Cards.RequestCard(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.bank.Cards.RequestCard(ctx, third); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := env.bank.Approvals.PendingCards()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending cards, got %d", len(pending))
	}
	// Directory insertion order.
	if pending[0].Email() != "ana@example.com" || pending[1].Email() != "caio@example.com" {
		t.Errorf("unexpected pending order: %s, %s", pending[0].Email(), pending[1].Email())
	}
}

func TestApprovalWorkflow_ApproveCardFor(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	client := mustClient(t, env, "ana@example.com", "12345678901", "0.00")
	if _, err := env.bank.Cards.RequestCard(ctx, client); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := env.bank.Approvals.ApproveCardFor(ctx, "ana@example.com", dec(t, "-1")); !errors.Is(err, domain.ErrInvalidLimit) {
		t.Errorf("expected invalid limit rejection, got %v", err)
	}
	if err := env.bank.Approvals.ApproveCardFor(ctx, "ghost@example.com", dec(t, "500")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	if err := env.bank.Approvals.ApproveCardFor(ctx, "ANA@example.com", dec(t, "500.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.CardStatus != domain.CardApproved {
		t.Errorf("expected approved, got %s", client.CardStatus)
	}

	if len(env.emails.SentEmails) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(env.emails.SentEmails))
	}
	if env.emails.SentEmails[0].To != "ana@example.com" {
		t.Errorf("notification sent to %s", env.emails.SentEmails[0].To)
	}

	if len(env.bank.Approvals.PendingCards()) != 0 {
		t.Error("expected no pending cards after approval")
	}
}

func TestApprovalWorkflow_LimitIncreases(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	client := approvedClient(t, env, "ana@example.com", "12345678901", "0.00", "500.00")

	if len(env.bank.Approvals.PendingLimitIncreases()) != 0 {
		t.Fatal("expected no pending limit increases")
	}
	if err := env.bank.Cards.RequestLimitIncrease(ctx, client, dec(t, "800.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := env.bank.Approvals.PendingLimitIncreases()
	if len(pending) != 1 || pending[0].Email() != "ana@example.com" {
		t.Fatalf("unexpected pending limit increases: %v", pending)
	}

	if err := env.bank.Approvals.ApproveLimitIncreaseFor(ctx, "ana@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !client.CreditLimit.Equal(dec(t, "800.00")) {
		t.Errorf("expected limit 800.00, got %s", client.CreditLimit.StringFixed(2))
	}
	if len(env.bank.Approvals.PendingLimitIncreases()) != 0 {
		t.Error("expected no pending limit increases after approval")
	}
}

func TestApprovalWorkflow_ApproveClosure(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	client := mustClient(t, env, "ana@example.com", "12345678901", "0.00")

	if err := env.bank.Approvals.ApproveClosure(ctx, "ana@example.com"); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected rejection without a closure request, got %v", err)
	}

	if err := env.bank.Ledger.RequestClosure(ctx, client); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// State changed after the request was filed: the admin-side re-check
	// must catch it.
	client.Balance = dec(t, "10.00")
	if err := env.bank.Approvals.ApproveClosure(ctx, "ana@example.com"); !errors.Is(err, domain.ErrNotEligible) {
		t.Errorf("expected not eligible, got %v", err)
	}

	client.Balance = dec(t, "0.00")
	if err := env.bank.Approvals.ApproveClosure(ctx, "ana@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.dir.Len() != 0 {
		t.Errorf("expected empty directory after closure, got %d", env.dir.Len())
	}
	if _, err := env.dir.FindByEmail("ana@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected account gone, got %v", err)
	}
	if got := env.emails.SentEmails; len(got) != 1 || got[0].Subject != "Account closed" {
		t.Errorf("expected a closure notification, got %v", got)
	}
}

func TestApprovalWorkflow_ClientDetail(t *testing.T) {
	env := setup(t)
	client := mustClient(t, env, "ana@example.com", "12345678901", "42.50")
	client.CardStatus = domain.CardApproved
	client.CreditLimit = dec(t, "500.00")

	detail, err := env.bank.Approvals.ClientDetail("ana@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.CPF != "123.456.789-01" {
		t.Errorf("expected formatted cpf, got %s", detail.CPF)
	}
	if !detail.Balance.Equal(dec(t, "42.50")) || detail.CardStatus != domain.CardApproved {
		t.Errorf("unexpected detail %+v", detail)
	}

	if _, err := env.bank.Approvals.ClientDetail("ghost@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
