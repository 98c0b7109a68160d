package bank

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"blibank/internal/directory"
	"blibank/internal/domain"
)

// returnBand is the fixed [min%, max%] return range for one asset class.
// The table is static configuration; it is not user-editable.
type returnBand struct {
	min, max float64
}

var assetClasses = map[string]returnBand{
	"stocks":       {-30, 30},
	"funds":        {-10, 10},
	"etfs":         {-20, 20},
	"crypto":       {-100, 500},
	"fixed-income": {5, 10},
}

// AssetClasses lists the known asset class names.
func AssetClasses() []string {
	names := make([]string, 0, len(assetClasses))
	for name := range assetClasses {
		names = append(names, name)
	}
	return names
}

// InvestmentEngine applies a randomized return drawn uniformly from the
// asset class band to a principal taken from the client's balance. The RNG
// is injected so tests can seed it.
type InvestmentEngine struct {
	dir    *directory.Directory
	mu     sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

func NewInvestmentEngine(dir *directory.Directory, rng *rand.Rand, logger *slog.Logger) *InvestmentEngine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InvestmentEngine{
		dir:    dir,
		rng:    rng,
		logger: logger,
	}
}

type InvestmentResult struct {
	ReturnPct   decimal.Decimal
	ReturnValue decimal.Decimal
	FinalValue  decimal.Decimal
}

// Invest draws a return percentage for the asset class, applies it to the
// principal and credits the net result back to the balance. The balance
// changes by exactly ReturnValue.
func (e *InvestmentEngine) Invest(ctx context.Context, client *domain.ClientAccount, amount decimal.Decimal, assetClass string) (InvestmentResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return InvestmentResult{}, domain.ErrInvalidAmount
	}
	band, ok := assetClasses[strings.ToLower(strings.TrimSpace(assetClass))]
	if !ok {
		return InvestmentResult{}, domain.ErrUnknownAssetClass
	}

	// The draw happens only after the funds check passes, so a rejected
	// investment never consumes a value from the sequence.
	var result InvestmentResult
	err := e.dir.Update(ctx, func() (func(), error) {
		if amount.GreaterThan(client.Balance) {
			return nil, domain.ErrInsufficientFunds
		}
		pct := domain.RoundMoney(decimal.NewFromFloat(e.draw(band)))
		returnValue := domain.RoundMoney(amount.Mul(pct).Div(decimal.NewFromInt(100)))
		result = InvestmentResult{
			ReturnPct:   pct,
			ReturnValue: returnValue,
			FinalValue:  domain.RoundMoney(amount.Add(returnValue)),
		}
		prev := client.Balance
		client.Balance = domain.RoundMoney(client.Balance.Add(returnValue))
		return func() { client.Balance = prev }, nil
	})
	if err != nil {
		return InvestmentResult{}, err
	}

	e.logger.InfoContext(ctx, "Investment applied",
		slog.String("email", client.Email()),
		slog.String("asset_class", strings.ToLower(assetClass)),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("return_pct", result.ReturnPct.StringFixed(2)),
		slog.String("balance", client.Balance.StringFixed(2)))
	return result, nil
}

func (e *InvestmentEngine) draw(band returnBand) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return band.min + e.rng.Float64()*(band.max-band.min)
}
