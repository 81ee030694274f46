/*
errors.go - Centralized error types for the ledger and engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Higher layers wrap these with additional context.

ERROR CATEGORIES:
  1. Ledger errors - invalid amounts, insufficient funds
  2. Lookup errors - unknown wallets and bookings
  3. Store errors - the backing relational store did not complete a call

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, ledger.ErrInsufficientFunds) {
        // reject the transition, nothing was mutated
    }

SEE ALSO:
  - ledger.go: produces these errors
  - api/handlers.go: maps them to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a credit or debit amount is zero
	// or negative. Direction belongs in Operation, never in the sign.
	ErrInvalidAmount = errors.New("invalid amount: must be positive")

	// ErrInsufficientFunds is returned when a debit would take a wallet
	// balance below zero. The wallet is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletNotFound is returned when a wallet key has no row in the
	// store. The three wallets are seeded at migration, so this indicates
	// a corrupted database rather than normal operation.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrNotFound is returned for operations on an unknown booking id.
	ErrNotFound = errors.New("booking not found")

	// ErrRemoteFailure is returned when the backing store's atomic call
	// did not complete. Local state is never mutated on this path.
	ErrRemoteFailure = errors.New("remote store call failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports a debit that would breach the
// non-negative balance invariant.
type InsufficientFundsError struct {
	Wallet    WalletKey
	Available Amount
	Requested Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in %s: available %s, requested %s",
		e.Wallet, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// RemoteFailureError wraps a store-level failure with the operation that
// was being attempted.
type RemoteFailureError struct {
	Op  string
	Err error
}

func (e *RemoteFailureError) Error() string {
	return fmt.Sprintf("remote store call %q failed: %v", e.Op, e.Err)
}

func (e *RemoteFailureError) Unwrap() error { return ErrRemoteFailure }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input
// rather than a system fault. Client errors are non-retryable; the caller
// must correct the input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrWalletNotFound)
}
