// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound = errors.New("not found")

	// Ledger errors.
	ErrInvalidChannel     = errors.New("invalid channel")
	ErrNoTransactions     = errors.New("no transactions")
	ErrInvariantViolation = errors.New("ledger invariant violated")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// InvariantError describes a definitional identity that a computed report
// failed to satisfy. It always indicates an engine bug rather than bad input.
type InvariantError struct {
	Identity string
	Period   string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s for %s: expected %s, got %s",
		ErrInvariantViolation, e.Identity, e.Period, e.Expected.StringFixed(2), e.Actual.StringFixed(2))
}

// Unwrap makes errors.Is(err, ErrInvariantViolation) hold.
func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
