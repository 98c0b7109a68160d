package validator

import (
	"errors"
	"fmt"
	"regexp"

	"blibank/internal/domain"
)

var (
	ErrInvalidName   = errors.New("name must contain only letters")
	ErrInvalidEmail  = errors.New("malformed email address")
	ErrInvalidCPF    = errors.New("cpf must be exactly 11 digits")
	ErrShortPassword = errors.New("password must be at least 8 characters")
)

const minPasswordLen = 8

// RegistrationValidator checks the field-level rules for new accounts. These
// are the same checks the presentation layer applies before calling in; the
// core re-validates so a misbehaving caller cannot create malformed rows.
type RegistrationValidator struct {
	nameRegex  *regexp.Regexp
	emailRegex *regexp.Regexp
	cpfRegex   *regexp.Regexp
}

func NewRegistrationValidator() *RegistrationValidator {
	return &RegistrationValidator{
		nameRegex:  regexp.MustCompile(`^[\p{L} '-]+$`),
		emailRegex: regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
		cpfRegex:   regexp.MustCompile(`^\d{11}$`),
	}
}

func (v *RegistrationValidator) Validate(name, surname, email, password, cpf string) error {
	var errs []error

	if name == "" || !v.nameRegex.MatchString(name) {
		errs = append(errs, fmt.Errorf("first %w", ErrInvalidName))
	}
	if surname == "" || !v.nameRegex.MatchString(surname) {
		errs = append(errs, fmt.Errorf("last %w", ErrInvalidName))
	}
	if !v.emailRegex.MatchString(domain.NormalizeEmail(email)) {
		errs = append(errs, ErrInvalidEmail)
	}
	if len(password) < minPasswordLen {
		errs = append(errs, ErrShortPassword)
	}
	if !v.cpfRegex.MatchString(cpf) {
		errs = append(errs, ErrInvalidCPF)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, errors.Join(errs...))
	}
	return nil
}
