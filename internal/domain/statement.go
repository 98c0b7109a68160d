package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseTimeLayout is the timestamp format used on statement lines.
const PurchaseTimeLayout = "2006-01-02 15:04:05"

// PurchaseRecord is one card purchase on a client's open statement.
type PurchaseRecord struct {
	Time        time.Time
	Merchant    string
	Description string
	Amount      decimal.Decimal
}

// NewPurchase builds a record safe for the statement line format: neither
// field may span lines, and the merchant sits in a fixed comma-separated
// column so it must not carry the separator (the description may, it is
// rejoined on load).
func NewPurchase(merchant, description string, amount decimal.Decimal) PurchaseRecord {
	return PurchaseRecord{
		Time:        time.Now().UTC().Truncate(time.Second),
		Merchant:    sanitizeField(strings.ReplaceAll(merchant, ",", " ")),
		Description: sanitizeField(description),
		Amount:      RoundMoney(amount),
	}
}

func sanitizeField(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(s))
}

// Statement is the accumulating list of unpaid card purchases for one client.
// It is append-only until settlement, which pays and clears it wholesale;
// partial settlement does not exist.
type Statement struct {
	Records []PurchaseRecord
}

func (s *Statement) Empty() bool {
	return s == nil || len(s.Records) == 0
}

func (s *Statement) Total() decimal.Decimal {
	total := decimal.Zero
	if s == nil {
		return total
	}
	for _, rec := range s.Records {
		total = total.Add(rec.Amount)
	}
	return RoundMoney(total)
}
