/*
Package recon plans and executes the wallet effect of a booking.

PURPOSE:
  The reconciliation engine is the only writer of ledger transactions. It
  turns a booking's platform and amounts into a sequence of wallet
  operations, in one of two directions:

    Apply:   the effect of the booking becoming confirmed
    Reverse: the exact inverse, when it stops being confirmed

ROUTING RULE:
  Direct platform:
    office wallet  CREDIT  basePay + markup
  Agency platform (AgencyA / AgencyB, routed to that agency's wallet):
    agency wallet  DEBIT   basePay     (paid out for the service)
    agency wallet  CREDIT  commission  (commission earned back)
    office wallet  CREDIT  basePay + markup
  Reverse inverts the direction of every leg with identical amounts.
  Zero-amount legs are skipped entirely; the ledger never sees them.

IDEMPOTENCY CONTRACT:
  Plan is pure and the engine does not deduplicate. Calling apply twice
  without an intervening reverse is a caller error; the lifecycle
  controller's transition table is what guarantees at-most-once.

ORDERING:
  The agency debit is planned first. Inside a store transaction this makes
  an underfunded confirmation fail before any credit lands, so the
  rollback has nothing surprising to undo.

SEE ALSO:
  - ledger: the credit/debit primitives these operations execute against
  - lifecycle: the only caller of Apply/Reverse
*/
package recon

import (
	"context"

	"github.com/tripdesk/backoffice/booking"
	"github.com/tripdesk/backoffice/ledger"
)

// Direction selects between applying a booking's effect and reversing it.
type Direction int

const (
	Apply Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "apply"
}

// Operation is one planned wallet movement. Amount is always positive.
type Operation struct {
	Wallet ledger.WalletKey
	Op     ledger.Operation
	Amount ledger.Amount
}

// =============================================================================
// PLANNING - pure function of (booking, direction)
// =============================================================================

// Plan computes the wallet operations for b in the given direction.
// Pure: no state is read or written.
func Plan(b booking.Booking, d Direction) []Operation {
	var ops []Operation
	emit := func(wallet ledger.WalletKey, op ledger.Operation, amount ledger.Amount) {
		if !amount.IsPositive() {
			return // zero legs produce no transaction
		}
		if d == Reverse {
			op = op.Invert()
		}
		ops = append(ops, Operation{Wallet: wallet, Op: op, Amount: amount})
	}

	officeShare := b.BasePay.Add(b.Markup)

	switch b.Platform {
	case booking.PlatformDirect:
		emit(ledger.WalletOffice, ledger.OpCredit, officeShare)

	case booking.PlatformAgencyA, booking.PlatformAgencyB:
		wallet, _ := b.Platform.Wallet()
		emit(wallet, ledger.OpDebit, b.BasePay)
		emit(wallet, ledger.OpCredit, b.Commission)
		emit(ledger.WalletOffice, ledger.OpCredit, officeShare)
	}

	return ops
}

// CanApply reports whether the platform wallet can fund an apply of b:
// for agency bookings the wallet balance must cover basePay. Direct
// bookings only credit, so they always pass.
func CanApply(ctx context.Context, store ledger.Store, b booking.Booking) error {
	wallet, ok := b.Platform.Wallet()
	if !ok {
		return nil
	}
	w, err := store.Wallet(ctx, wallet)
	if err != nil {
		return err
	}
	if b.BasePay.GreaterThan(w.Balance) {
		return &ledger.InsufficientFundsError{
			Wallet:    wallet,
			Available: w.Balance,
			Requested: b.BasePay,
		}
	}
	return nil
}

// =============================================================================
// EXECUTION - run a plan against the ledger
// =============================================================================

// Execute runs ops against the store's ledger, tagging every entry with
// the booking id and action. The caller brackets this in the store
// transaction that covers the whole lifecycle transition; Execute itself
// stops at the first failing leg and lets the rollback discard the rest.
func Execute(ctx context.Context, store ledger.Store, ops []Operation, bookingID, user string, action ledger.Action) error {
	l := ledger.New(store)
	meta := ledger.Meta{BookingID: bookingID, Action: action}
	for _, op := range ops {
		var err error
		switch op.Op {
		case ledger.OpCredit:
			err = l.Credit(ctx, op.Wallet, op.Amount, user, meta)
		case ledger.OpDebit:
			err = l.Debit(ctx, op.Wallet, op.Amount, user, meta)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
