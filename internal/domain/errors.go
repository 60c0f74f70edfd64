package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDateRange        = errors.New("invalid date range")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrMissingRequiredField    = errors.New("missing required field")
	ErrPaymentAmountMismatch   = errors.New("payment amount mismatch")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidCoupon           = errors.New("invalid coupon")
	ErrNothingToPay            = errors.New("nothing left to pay")
	ErrNotFound                = errors.New("not found")
	ErrAlreadySettled          = errors.New("payment already settled")
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrGatewayUnavailable      = errors.New("payment gateway not configured")
)

// ValidationError attaches the offending field and a readable reason to one
// of the error kinds above.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidationError(kind error, field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Err: kind}
}

// MissingField is shorthand for the most common rejection.
func MissingField(field string) error {
	return NewValidationError(ErrMissingRequiredField, field, "is required")
}
