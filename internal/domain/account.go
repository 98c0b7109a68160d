package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindClient Kind = "client"
	KindAdmin  Kind = "admin"
)

type CardStatus string

const (
	CardNone     CardStatus = "none"
	CardPending  CardStatus = "pending"
	CardApproved CardStatus = "approved"
)

// Identity carries the fields shared by every account variant. Email is the
// primary key across the directory and is normalized to lowercase at
// construction; it never changes afterwards.
type Identity struct {
	name       string
	surname    string
	email      string
	credential string
	cpf        string
}

func NewIdentity(name, surname, email, credential, cpf string) Identity {
	return Identity{
		name:       strings.TrimSpace(name),
		surname:    strings.TrimSpace(surname),
		email:      NormalizeEmail(email),
		credential: credential,
		cpf:        strings.TrimSpace(cpf),
	}
}

func (i Identity) Name() string       { return i.name }
func (i Identity) Surname() string    { return i.surname }
func (i Identity) Email() string      { return i.email }
func (i Identity) Credential() string { return i.credential }
func (i Identity) CPF() string        { return i.cpf }

// SetCredential replaces the stored credential, used when upgrading a legacy
// plaintext password to a hash after a successful login.
func (i *Identity) SetCredential(credential string) { i.credential = credential }

// FormattedCPF renders the tax id as XXX.XXX.XXX-XX.
func (i Identity) FormattedCPF() string {
	cpf := i.cpf
	for len(cpf) < 11 {
		cpf = "0" + cpf
	}
	return fmt.Sprintf("%s.%s.%s-%s", cpf[:3], cpf[3:6], cpf[6:9], cpf[9:])
}

// Account is the closed variant over client and administrator accounts. The
// directory only depends on this surface; everything else type-switches on
// the concrete variant.
type Account interface {
	Name() string
	Surname() string
	Email() string
	Credential() string
	CPF() string
	Kind() Kind
}

type ClientAccount struct {
	Identity

	Balance          decimal.Decimal
	CardStatus       CardStatus
	CreditLimit      decimal.Decimal
	CardDebt         decimal.Decimal
	RequestedLimit   decimal.Decimal
	ClosureRequested bool
}

func NewClientAccount(name, surname, email, credential, cpf string) *ClientAccount {
	return &ClientAccount{
		Identity:   NewIdentity(name, surname, email, credential, cpf),
		CardStatus: CardNone,
	}
}

func (c *ClientAccount) Kind() Kind { return KindClient }

// AvailableCredit is the remaining purchasing power on an approved card.
func (c *ClientAccount) AvailableCredit() decimal.Decimal {
	return c.CreditLimit.Sub(c.CardDebt)
}

type AdminAccount struct {
	Identity

	// AccessLevel is informational only; no authorization decision reads it.
	AccessLevel string
}

func NewAdminAccount(name, surname, email, credential, cpf string) *AdminAccount {
	return &AdminAccount{
		Identity:    NewIdentity(name, surname, email, credential, cpf),
		AccessLevel: "admin",
	}
}

func (a *AdminAccount) Kind() Kind { return KindAdmin }

// NormalizeEmail lowers and trims an email so lookups and uniqueness checks
// are case-insensitive everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RoundMoney rounds a monetary value to cents. Every balance, limit and debt
// mutation passes through this so stored values and displayed values never
// diverge.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
