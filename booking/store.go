/*
store.go - Persistence interface for bookings and their edit history

PURPOSE:
  Pure data access for booking records. No financial logic: the store
  neither knows nor cares whether a booking's wallet effect is live.

EDIT HISTORY CONTRACT:
  booking_edits is append-only, one entry per accepted mutation. Deleting
  a booking removes its row (and its edit entries with it); the ledger's
  transaction log is what survives deletion and keeps the money auditable.

IMPLEMENTATIONS:
  - store/sqlite: production store over the relational database

SEE ALSO:
  - types.go: the Booking record and EditEntry
  - lifecycle: the only package that mutates through this interface
*/
package booking

import "context"

// Store handles persistence of bookings and edit history.
type Store interface {
	// CreateBooking inserts a new booking row.
	CreateBooking(ctx context.Context, b Booking) error

	// GetBooking returns the booking with id, or ledger.ErrNotFound.
	GetBooking(ctx context.Context, id string) (Booking, error)

	// ListBookings returns all bookings, newest first.
	ListBookings(ctx context.Context) ([]Booking, error)

	// UpdateBooking overwrites the booking row matching b.ID.
	UpdateBooking(ctx context.Context, b Booking) error

	// DeleteBooking removes the booking row and its edit history.
	DeleteBooking(ctx context.Context, id string) error

	// AppendEdit adds an edit-history entry. Append-only.
	AppendEdit(ctx context.Context, entry EditEntry) error

	// Edits returns the booking's edit history, newest first.
	Edits(ctx context.Context, bookingID string) ([]EditEntry, error)
}
