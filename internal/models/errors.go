package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is returned for inputs that fail validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientFunds is returned when a pillar cannot cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// InsufficientFundsError reports a transfer that exceeds the source balance.
type InsufficientFundsError struct {
	Pillar    string
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient balance in %s: %s€ < %s€",
		e.Pillar, e.Balance.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// NotFoundf wraps ErrNotFound with a formatted resource description.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Invalidf wraps ErrInvalidArgument with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}
