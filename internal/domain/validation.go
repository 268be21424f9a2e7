package domain

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrAmountTooLarge  = errors.New("amount exceeds maximum allowed")
	ErrAmountScale     = errors.New("amount has too many decimal places")
	ErrMissingFsp      = errors.New("payer and payee fsp are required")
	ErrSameFsp         = errors.New("payer and payee fsp must differ")
)

// Validation constants
const (
	MaxAmountIntegerDigits = 18
	MaxAmountScale         = 4
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateTransferID accepts UUIDs and ULIDs.
func ValidateTransferID(id string) error {
	if _, err := uuid.Parse(id); err == nil && len(id) == 36 {
		return nil
	}
	if _, err := ulid.ParseStrict(id); err == nil {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidTransferID, id)
}

// ValidateCurrency checks for an ISO 4217 alphabetic code.
func ValidateCurrency(code string) error {
	if !currencyRegex.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return nil
}

// ValidateAmount checks that an amount is positive and fits the
// interoperability amount format of 18 integer and 4 fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	if -amount.Exponent() > MaxAmountScale && !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("%w: %s", ErrAmountScale, amount)
	}

	if len(amount.Truncate(0).String()) > MaxAmountIntegerDigits {
		return fmt.Errorf("%w: %s", ErrAmountTooLarge, amount)
	}

	return nil
}

// ValidateParticipants checks the payer and payee of a transfer.
func ValidateParticipants(payer, payee string) error {
	if payer == "" || payee == "" {
		return ErrMissingFsp
	}
	if payer == payee {
		return fmt.Errorf("%w: %q", ErrSameFsp, payer)
	}
	return nil
}
