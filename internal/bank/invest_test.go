package bank

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"blibank/internal/domain"
)

func TestInvestmentEngine_Invest_Deterministic(t *testing.T) {
	env := setup(t)
	client := mustClient(t, env, "ana@example.com", "12345678901", "1000.00")

	// Same seed as the engine in setup: replay the draw to know the band
	// position it will use.
	rng := rand.New(rand.NewSource(1))
	band := assetClasses["fixed-income"]
	pct := domain.RoundMoney(decimal.NewFromFloat(band.min + rng.Float64()*(band.max-band.min)))

	amount := dec(t, "200.00")
	result, err := env.bank.Investments.Invest(context.Background(), client, amount, "Fixed-Income")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.ReturnPct.Equal(pct) {
		t.Errorf("expected return pct %s, got %s", pct, result.ReturnPct)
	}
	wantReturn := domain.RoundMoney(amount.Mul(pct).Div(decimal.NewFromInt(100)))
	if !result.ReturnValue.Equal(wantReturn) {
		t.Errorf("expected return value %s, got %s", wantReturn, result.ReturnValue)
	}
	if !result.FinalValue.Equal(amount.Add(wantReturn)) {
		t.Errorf("expected final value %s, got %s", amount.Add(wantReturn), result.FinalValue)
	}
	if !client.Balance.Equal(dec(t, "1000.00").Add(wantReturn)) {
		t.Errorf("balance must change by exactly the return: got %s", client.Balance.StringFixed(2))
	}
}

func TestInvestmentEngine_Invest_FixedIncomeNeverLoses(t *testing.T) {
	env := setup(t)
	client := mustClient(t, env, "ana@example.com", "12345678901", "100000.00")

	for i := 0; i < 50; i++ {
		result, err := env.bank.Investments.Invest(context.Background(), client, dec(t, "100.00"), "fixed-income")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ReturnPct.LessThan(decimal.NewFromInt(5)) || result.ReturnPct.GreaterThan(decimal.NewFromInt(10)) {
			t.Fatalf("fixed-income return %s outside [5,10]", result.ReturnPct)
		}
	}
}

func TestInvestmentEngine_Invest_Rejections(t *testing.T) {
	env := setup(t)
	client := mustClient(t, env, "ana@example.com", "12345678901", "100.00")

	cases := []struct {
		name   string
		amount string
		class  string
		want   error
	}{
		{"zero amount", "0", "stocks", domain.ErrInvalidAmount},
		{"negative amount", "-10", "stocks", domain.ErrInvalidAmount},
		{"unknown class", "10", "beanie-babies", domain.ErrUnknownAssetClass},
		{"insufficient funds", "100.01", "stocks", domain.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		_, err := env.bank.Investments.Invest(context.Background(), client, dec(t, tc.amount), tc.class)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if !client.Balance.Equal(dec(t, "100.00")) {
		t.Errorf("rejected investments must not change balance, got %s", client.Balance.StringFixed(2))
	}
}

// Rejected investments must not consume a value from the seeded sequence:
// the first successful investment still sees the first draw.
func TestInvestmentEngine_RejectionsDoNotConsumeDraws(t *testing.T) {
	env := setup(t)
	client := mustClient(t, env, "ana@example.com", "12345678901", "100.00")
	ctx := context.Background()

	if _, err := env.bank.Investments.Invest(ctx, client, dec(t, "500.00"), "stocks"); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := env.bank.Investments.Invest(ctx, client, dec(t, "10.00"), "beanie-babies"); !errors.Is(err, domain.ErrUnknownAssetClass) {
		t.Fatalf("expected unknown asset class, got %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	band := assetClasses["fixed-income"]
	pct := domain.RoundMoney(decimal.NewFromFloat(band.min + rng.Float64()*(band.max-band.min)))

	result, err := env.bank.Investments.Invest(ctx, client, dec(t, "50.00"), "fixed-income")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ReturnPct.Equal(pct) {
		t.Errorf("expected first draw %s after rejections, got %s", pct, result.ReturnPct)
	}
}

func TestAssetClasses_Table(t *testing.T) {
	want := []string{"stocks", "funds", "etfs", "crypto", "fixed-income"}
	for _, name := range want {
		if _, ok := assetClasses[name]; !ok {
			t.Errorf("missing asset class %q", name)
		}
	}
	if len(assetClasses) != len(want) {
		t.Errorf("expected %d asset classes, got %d", len(want), len(assetClasses))
	}
}
