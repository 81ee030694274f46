/*
Package ledger provides the cash-wallet ledger at the core of the
back-office engine.

PURPOSE:
  Tracks the balances of the agency's three cash wallets and records every
  movement in an append-only transaction log. Balances are materialized
  (each wallet row carries its current balance) but every change to a
  balance is paired with a log entry, so the log can always explain how a
  balance got where it is.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: a non-negative money quantity backed by decimal.Decimal
  - WalletKey: closed set of wallet identifiers (agencyA, agencyB, office)
  - Transaction: an immutable log entry recording one credit or debit
  - Action: reason tag linking a log entry to the booking operation that
    produced it (apply, reverse, refund_on_delete, manual_adjust)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal, never floats, for money
  2. Closed sets: WalletKey and Operation are tagged types; routing code
     switches over them exhaustively
  3. Append-only: transactions are never updated or deleted; corrections
     are new opposite-direction entries

SEE ALSO:
  - ledger.go: credit/debit primitives with the non-negative guarantee
  - store.go: persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Money quantity
// =============================================================================

// Amount is a money value. The ledger is single-currency, so there is no
// currency field; arithmetic is plain decimal arithmetic.
type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value float64) Amount {
	return Amount{Value: decimal.NewFromFloat(value)}
}

func NewAmountFromInt(value int) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value))}
}

// ParseAmount parses a decimal string. Invalid input yields zero; callers
// that need strictness should validate upstream.
func ParseAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{Value: decimal.Zero}
	}
	return Amount{Value: d}
}

func Zero() Amount { return Amount{Value: decimal.Zero} }

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg()} }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

func (a Amount) String() string { return a.Value.String() }

// =============================================================================
// WALLET - Named cash wallet
// =============================================================================

// WalletKey identifies one of the three wallets. The set is closed: the
// reconciliation routing rule switches over it exhaustively, so a new
// wallet forces a review of that rule.
type WalletKey string

const (
	WalletAgencyA WalletKey = "agencyA"
	WalletAgencyB WalletKey = "agencyB"
	WalletOffice  WalletKey = "office"
)

// AllWallets lists every wallet key, in display order.
func AllWallets() []WalletKey {
	return []WalletKey{WalletAgencyA, WalletAgencyB, WalletOffice}
}

// ParseWalletKey validates a wallet key from external input.
func ParseWalletKey(s string) (WalletKey, bool) {
	switch WalletKey(s) {
	case WalletAgencyA, WalletAgencyB, WalletOffice:
		return WalletKey(s), true
	}
	return "", false
}

// Wallet is a wallet row: key plus materialized balance.
//
// INVARIANT: Balance >= 0 at all times. A debit that would break this must
// fail before any state is mutated.
type Wallet struct {
	Key     WalletKey
	Balance Amount
}

// =============================================================================
// TRANSACTION - Append-only log entry
// =============================================================================

// Operation is the direction of a ledger movement.
type Operation string

const (
	OpCredit Operation = "credit"
	OpDebit  Operation = "debit"
)

// Invert swaps credit and debit. Used when reversing a booking's effect.
func (op Operation) Invert() Operation {
	if op == OpCredit {
		return OpDebit
	}
	return OpCredit
}

// Action tags a transaction with the booking operation that produced it,
// so the audit trail can distinguish an apply from a delete refund.
type Action string

const (
	ActionApply        Action = "apply"
	ActionReverse      Action = "reverse"
	ActionDeleteRefund Action = "refund_on_delete"
	ActionManualAdjust Action = "manual_adjust"
)

// TransactionID is a unique identifier for a ledger entry.
type TransactionID string

// Transaction records one wallet movement. Amount is always positive; the
// direction lives in Op. BookingID is empty for entries not tied to a
// booking (manual adjustments).
//
// Transactions are append-only. Once written they are never modified or
// deleted; reversals are recorded as new opposite-direction entries.
type Transaction struct {
	ID        TransactionID
	Wallet    WalletKey
	Amount    Amount
	Op        Operation
	BookingID string
	Action    Action
	User      string
	CreatedAt time.Time
}

// Meta carries the audit context of a credit or debit: which booking it
// belongs to (if any) and why it happened.
type Meta struct {
	BookingID string
	Action    Action
}
