/*
Package lifecycle orchestrates booking operations against the store and
the reconciliation engine.

PURPOSE:
  The controller is the only caller of recon.Execute and therefore the
  component responsible for the engine's at-most-once contract: at any
  moment, at most one "apply" worth of wallet effect is live per booking.

TRANSITION TABLE:
  create (-> pending)                  no ledger action
  pending/cancelled -> confirmed       apply
  confirmed -> pending/cancelled       reverse
  confirmed -> confirmed (same)        no-op, never double-applies
  edit while confirmed                 reverse(old), persist, apply(new)
  delete while confirmed               reverse (tagged refund_on_delete),
                                       then remove the record
  delete while not confirmed           remove the record only

ATOMICITY:
  Every mutation runs inside a single Store.WithTx: booking write, edit
  history entry, and all wallet legs commit together or not at all. A
  funds failure mid-apply leaves the booking in its prior status and the
  wallets untouched.

SOURCE OF TRUTH:
  The relational store is authoritative. The controller keeps a small
  read mirror (wallet balances, booking rows) that is invalidated on
  every successful write and refilled lazily; it is never written to
  directly and never trusted across a write.

SEE ALSO:
  - recon: plans and executes the wallet legs
  - booking: validation and the record itself
  - store/sqlite: the Store implementation
*/
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/backoffice/booking"
	"github.com/tripdesk/backoffice/ledger"
	"github.com/tripdesk/backoffice/recon"
)

// Store combines booking and wallet persistence under one transactional
// boundary. The sqlite store implements it; each controller mutation is
// exactly one WithTx, which is the engine-side equivalent of the remote
// store's atomic create/confirm/reverse procedures.
type Store interface {
	booking.Store
	ledger.Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Controller runs the booking lifecycle.
type Controller struct {
	store     Store
	validator *booking.Validator
	mirror    *mirror
	log       *slog.Logger
	now       func() time.Time
}

func NewController(store Store, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		store:     store,
		validator: booking.NewValidator(),
		mirror:    newMirror(),
		log:       log,
		now:       time.Now,
	}
}

// =============================================================================
// COMMANDS - the four booking operations
// =============================================================================

// CreateBooking validates and persists a new booking. Status defaults to
// pending; a booking created directly as confirmed gets its wallet effect
// applied in the same transaction.
func (c *Controller) CreateBooking(ctx context.Context, b booking.Booking, user string) (booking.Booking, error) {
	if b.Status == "" {
		b.Status = booking.StatusPending
	}
	if err := c.validator.Validate(b); err != nil {
		return booking.Booking{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := c.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	err := c.store.WithTx(ctx, func(s Store) error {
		if b.Status == booking.StatusConfirmed {
			if err := recon.CanApply(ctx, s, b); err != nil {
				return err
			}
		}
		if err := s.CreateBooking(ctx, b); err != nil {
			return err
		}
		if err := s.AppendEdit(ctx, c.editEntry(b.ID, user, []booking.FieldChange{
			{Field: "booking", To: "created"},
			{Field: "status", To: string(b.Status)},
		})); err != nil {
			return err
		}
		if b.Status == booking.StatusConfirmed {
			return recon.Execute(ctx, s, recon.Plan(b, recon.Apply), b.ID, user, ledger.ActionApply)
		}
		return nil
	})
	if err != nil {
		return booking.Booking{}, err
	}

	c.mirror.invalidate()
	c.log.Info("booking created", "booking_id", b.ID, "platform", b.Platform, "status", b.Status)
	return b, nil
}

// SetStatus moves a booking between lifecycle states, applying or
// reversing the wallet effect as the transition table requires. A
// same-status call is explicitly a no-op.
func (c *Controller) SetStatus(ctx context.Context, id string, status booking.Status, user string) (booking.Booking, error) {
	if _, ok := booking.ParseStatus(string(status)); !ok {
		return booking.Booking{}, &booking.ValidationError{Field: "status", Message: "is not a known status"}
	}

	var updated booking.Booking
	err := c.store.WithTx(ctx, func(s Store) error {
		b, err := s.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == status {
			updated = b
			return nil // no-op: must not double-apply
		}

		wasConfirmed := b.Status == booking.StatusConfirmed
		old := b
		b.Status = status
		b.UpdatedAt = c.now().UTC()

		if wasConfirmed {
			if err := recon.Execute(ctx, s, recon.Plan(old, recon.Reverse), b.ID, user, ledger.ActionReverse); err != nil {
				return err
			}
		}
		if err := s.UpdateBooking(ctx, b); err != nil {
			return err
		}
		if err := s.AppendEdit(ctx, c.editEntry(b.ID, user, []booking.FieldChange{
			{Field: "status", From: string(old.Status), To: string(status)},
		})); err != nil {
			return err
		}
		if status == booking.StatusConfirmed {
			if err := recon.CanApply(ctx, s, b); err != nil {
				return err
			}
			if err := recon.Execute(ctx, s, recon.Plan(b, recon.Apply), b.ID, user, ledger.ActionApply); err != nil {
				return err
			}
		}
		updated = b
		return nil
	})
	if err != nil {
		return booking.Booking{}, err
	}

	c.mirror.invalidate()
	c.log.Info("booking status set", "booking_id", id, "status", status)
	return updated, nil
}

// EditBooking replaces a booking's editable fields. While the booking is
// confirmed, the old effect is reversed before the new fields are
// persisted and the new effect applied - never interleaved, never applied
// on top of stale amounts. An edit may also change status; the table's
// apply/reverse rules still hold.
func (c *Controller) EditBooking(ctx context.Context, updated booking.Booking, user string) (booking.Booking, error) {
	if err := c.validator.Validate(updated); err != nil {
		return booking.Booking{}, err
	}

	var result booking.Booking
	err := c.store.WithTx(ctx, func(s Store) error {
		old, err := s.GetBooking(ctx, updated.ID)
		if err != nil {
			return err
		}

		updated.CreatedAt = old.CreatedAt
		updated.UpdatedAt = c.now().UTC()
		changes := booking.Diff(old, updated)
		if len(changes) == 0 {
			result = old
			return nil
		}

		if old.Status == booking.StatusConfirmed {
			if err := recon.Execute(ctx, s, recon.Plan(old, recon.Reverse), old.ID, user, ledger.ActionReverse); err != nil {
				return err
			}
		}
		if err := s.UpdateBooking(ctx, updated); err != nil {
			return err
		}
		if err := s.AppendEdit(ctx, c.editEntry(updated.ID, user, changes)); err != nil {
			return err
		}
		if updated.Status == booking.StatusConfirmed {
			if err := recon.CanApply(ctx, s, updated); err != nil {
				return err
			}
			if err := recon.Execute(ctx, s, recon.Plan(updated, recon.Apply), updated.ID, user, ledger.ActionApply); err != nil {
				return err
			}
		}
		result = updated
		return nil
	})
	if err != nil {
		return booking.Booking{}, err
	}

	c.mirror.invalidate()
	c.log.Info("booking edited", "booking_id", updated.ID)
	return result, nil
}

// DeleteBooking removes a booking. A confirmed booking's effect is
// reversed first, tagged refund_on_delete so the audit trail can tell a
// deletion refund from an ordinary unconfirm. The ledger entries survive
// the record's deletion.
func (c *Controller) DeleteBooking(ctx context.Context, id, user string) error {
	err := c.store.WithTx(ctx, func(s Store) error {
		b, err := s.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == booking.StatusConfirmed {
			if err := recon.Execute(ctx, s, recon.Plan(b, recon.Reverse), b.ID, user, ledger.ActionDeleteRefund); err != nil {
				return err
			}
		}
		return s.DeleteBooking(ctx, id)
	})
	if err != nil {
		return err
	}

	c.mirror.invalidate()
	c.log.Info("booking deleted", "booking_id", id)
	return nil
}

// AdjustWallet records a manual credit or debit outside any booking,
// e.g. topping up an agency wallet. Same primitives, same guarantees.
func (c *Controller) AdjustWallet(ctx context.Context, key ledger.WalletKey, op ledger.Operation, amount ledger.Amount, user string) error {
	err := c.store.WithTx(ctx, func(s Store) error {
		l := ledger.New(s)
		meta := ledger.Meta{Action: ledger.ActionManualAdjust}
		if op == ledger.OpDebit {
			return l.Debit(ctx, key, amount, user, meta)
		}
		return l.Credit(ctx, key, amount, user, meta)
	})
	if err != nil {
		return err
	}

	c.mirror.invalidate()
	c.log.Info("wallet adjusted", "wallet", key, "op", op, "amount", amount)
	return nil
}

// =============================================================================
// QUERIES - served from the mirror where possible
// =============================================================================

// Booking returns one booking, from the mirror when it is warm.
func (c *Controller) Booking(ctx context.Context, id string) (booking.Booking, error) {
	if b, ok := c.mirror.booking(id); ok {
		return b, nil
	}
	b, err := c.store.GetBooking(ctx, id)
	if err != nil {
		return booking.Booking{}, err
	}
	c.mirror.putBooking(b)
	return b, nil
}

// Bookings returns all bookings, newest first. Always a store read; the
// mirror only caches point lookups.
func (c *Controller) Bookings(ctx context.Context) ([]booking.Booking, error) {
	return c.store.ListBookings(ctx)
}

// Wallets returns all wallet balances, from the mirror when it is warm.
func (c *Controller) Wallets(ctx context.Context) ([]ledger.Wallet, error) {
	if wallets, ok := c.mirror.wallets(); ok {
		return wallets, nil
	}
	wallets, err := c.store.Wallets(ctx)
	if err != nil {
		return nil, err
	}
	c.mirror.putWallets(wallets)
	return wallets, nil
}

// WalletTransactions returns the transaction log for one wallet, newest
// first, up to limit (0 = no limit).
func (c *Controller) WalletTransactions(ctx context.Context, key ledger.WalletKey, limit int) ([]ledger.Transaction, error) {
	if _, err := c.store.Wallet(ctx, key); err != nil {
		return nil, err
	}
	all, err := c.store.Transactions(ctx, 0)
	if err != nil {
		return nil, err
	}
	var result []ledger.Transaction
	for _, tx := range all {
		if tx.Wallet != key {
			continue
		}
		result = append(result, tx)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (c *Controller) editEntry(bookingID, user string, changes []booking.FieldChange) booking.EditEntry {
	return booking.EditEntry{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Timestamp: c.now().UTC(),
		User:      user,
		Changes:   changes,
	}
}
