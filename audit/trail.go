/*
Package audit assembles the per-booking history the dashboard shows.

PURPOSE:
  Merges a booking's edit-history entries with the ledger transactions
  tagged with its id, sorted by timestamp descending. Read-only and
  derived: recomputed on every call, no cached state to go stale.

  Works for deleted bookings too - the booking row and its edits are
  gone, but the ledger entries (including the refund_on_delete reversal)
  remain and still tell the money's story.
*/
package audit

import (
	"context"
	"sort"
	"time"

	"github.com/tripdesk/backoffice/booking"
	"github.com/tripdesk/backoffice/ledger"
)

// EntryKind distinguishes the two sources merged into a trail.
type EntryKind string

const (
	KindEdit        EntryKind = "edit"
	KindTransaction EntryKind = "transaction"
)

// Entry is one line of the merged trail. Exactly one of Edit and
// Transaction is set, matching Kind.
type Entry struct {
	Kind        EntryKind
	Timestamp   time.Time
	Edit        *booking.EditEntry
	Transaction *ledger.Transaction
}

// Assembler builds booking histories from the two underlying stores.
type Assembler struct {
	Bookings booking.Store
	Ledger   ledger.Store
}

func NewAssembler(bookings booking.Store, lg ledger.Store) *Assembler {
	return &Assembler{Bookings: bookings, Ledger: lg}
}

// HistoryFor returns the merged trail for bookingID, newest first.
// Entries with equal timestamps keep edits before transactions so the
// cause (the edit) reads above its effect (the wallet movements).
func (a *Assembler) HistoryFor(ctx context.Context, bookingID string) ([]Entry, error) {
	edits, err := a.Bookings.Edits(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	txs, err := a.Ledger.TransactionsFor(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(edits)+len(txs))
	for i := range edits {
		entries = append(entries, Entry{
			Kind:      KindEdit,
			Timestamp: edits[i].Timestamp,
			Edit:      &edits[i],
		})
	}
	for i := range txs {
		entries = append(entries, Entry{
			Kind:        KindTransaction,
			Timestamp:   txs[i].CreatedAt,
			Transaction: &txs[i],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].Kind == KindEdit && entries[j].Kind == KindTransaction
	})
	return entries, nil
}
