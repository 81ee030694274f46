/*
ledger.go - Credit/debit primitives with the non-negative guarantee

PURPOSE:
  The Ledger is the only component allowed to move money between wallets.
  Every movement both mutates the materialized balance and appends a log
  entry, so the log and the balances can never silently drift apart.

CRITICAL INVARIANTS:
  1. NON-NEGATIVE: no debit may take a balance below zero; the check and
     the mutation see the same pre-mutation snapshot
  2. POSITIVE AMOUNTS: zero and negative amounts are rejected before any
     state is touched; a zero-amount leg is the caller's bug
  3. PAIRED WRITES: a balance mutation without a log entry (or vice versa)
     must be impossible; run multi-step sequences inside TxStore.WithTx

CORRECTIONS:
  Mistakes are never edited away. Reversing a booking writes new entries
  with the opposite direction; both the original and the reversal stay in
  the log and the net effect is the correction.

SEE ALSO:
  - store.go: low-level persistence interface
  - recon: plans which credits/debits a booking produces
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger exposes the wallet primitives the rest of the engine consumes.
type Ledger interface {
	// Balance returns the current balance of key. No side effects.
	Balance(ctx context.Context, key WalletKey) (Amount, error)

	// Credit increases key's balance and appends a credit entry.
	// Fails with ErrInvalidAmount if amount <= 0.
	Credit(ctx context.Context, key WalletKey, amount Amount, user string, meta Meta) error

	// Debit decreases key's balance and appends a debit entry. Fails with
	// ErrInvalidAmount if amount <= 0 and ErrInsufficientFunds if amount
	// exceeds the balance; neither failure mutates state.
	Debit(ctx context.Context, key WalletKey, amount Amount, user string, meta Meta) error

	// TransactionsFor returns entries tagged with bookingID, newest first.
	TransactionsFor(ctx context.Context, bookingID string) ([]Transaction, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store

	// now is swappable for deterministic tests.
	now func() time.Time
}

func New(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store, now: time.Now}
}

func (l *DefaultLedger) Balance(ctx context.Context, key WalletKey) (Amount, error) {
	w, err := l.Store.Wallet(ctx, key)
	if err != nil {
		return Amount{}, err
	}
	return w.Balance, nil
}

func (l *DefaultLedger) Credit(ctx context.Context, key WalletKey, amount Amount, user string, meta Meta) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := l.Store.CreditWallet(ctx, key, amount); err != nil {
		return err
	}
	return l.Store.Append(ctx, l.entry(key, amount, OpCredit, user, meta))
}

func (l *DefaultLedger) Debit(ctx context.Context, key WalletKey, amount Amount, user string, meta Meta) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	// The store checks sufficiency against the same snapshot it mutates.
	if err := l.Store.DebitWallet(ctx, key, amount); err != nil {
		return err
	}
	return l.Store.Append(ctx, l.entry(key, amount, OpDebit, user, meta))
}

func (l *DefaultLedger) TransactionsFor(ctx context.Context, bookingID string) ([]Transaction, error) {
	return l.Store.TransactionsFor(ctx, bookingID)
}

func (l *DefaultLedger) entry(key WalletKey, amount Amount, op Operation, user string, meta Meta) Transaction {
	if l.now == nil {
		l.now = time.Now
	}
	return Transaction{
		ID:        TransactionID(uuid.NewString()),
		Wallet:    key,
		Amount:    amount,
		Op:        op,
		BookingID: meta.BookingID,
		Action:    meta.Action,
		User:      user,
		CreatedAt: l.now().UTC(),
	}
}
