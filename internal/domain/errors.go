package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. The broad categories come first; specific failures wrap
// their category so callers can match either level with errors.Is. Every
// failure the core can produce maps to exactly one of these, and the API
// layer turns each into a distinct user-facing message.
var (
	ErrValidation         = errors.New("invalid input")
	ErrInvalidState       = errors.New("operation not valid in current state")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrLimitExceeded      = errors.New("credit limit exceeded")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrPersistence        = errors.New("persistence failure")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

var (
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidLimit       = fmt.Errorf("%w: limit must not be negative", ErrValidation)
	ErrSelfTransfer       = fmt.Errorf("%w: cannot transfer to own account", ErrValidation)
	ErrUnknownAssetClass  = fmt.Errorf("%w: unknown asset class", ErrValidation)
	ErrLimitNotIncreasing = fmt.Errorf("%w: requested limit must exceed current limit", ErrValidation)

	ErrRecipientNotFound  = fmt.Errorf("%w: recipient", ErrNotFound)
	ErrRecipientNotClient = fmt.Errorf("%w: administrators cannot receive transfers", ErrValidation)

	ErrCardNotApproved     = fmt.Errorf("%w: card not approved", ErrInvalidState)
	ErrCardNotPending      = fmt.Errorf("%w: no pending card request", ErrInvalidState)
	ErrNonZeroBalance      = fmt.Errorf("%w: balance must be zero", ErrInvalidState)
	ErrOutstandingCardDebt = fmt.Errorf("%w: card debt must be settled", ErrInvalidState)
	ErrOpenStatement       = fmt.Errorf("%w: open statement must be paid", ErrInvalidState)
	ErrNotEligible         = fmt.Errorf("%w: account not eligible for closure", ErrInvalidState)

	ErrDuplicateEmail          = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrDuplicateCPF            = fmt.Errorf("%w: cpf already registered", ErrConflict)
	ErrLimitRequestPending     = fmt.Errorf("%w: a limit increase request is already pending", ErrConflict)
	ErrClosureAlreadyRequested = fmt.Errorf("%w: closure already requested", ErrConflict)
)

// ErrNoStatement reports settlement of an empty statement. It is surfaced as
// an informational no-op to the end user, not as a failure.
var ErrNoStatement = errors.New("no open statement")
