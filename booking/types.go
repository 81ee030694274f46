/*
Package booking holds the booking record, its closed status/platform/
category sets, and the derived financial fields.

PURPOSE:
  A Booking is the unit the back-office operates on. Its financial fields
  (basePay, commission, markup) together with its platform determine the
  wallet effect the reconciliation engine applies while the booking is
  confirmed. This package is pure data: no wallet logic lives here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Platform/Status/Category: closed tagged types with Parse helpers, so
    the routing rule and the lifecycle table can switch exhaustively
  - TotalRevenue/NetProfit: derived values, always computed, never stored
  - EditEntry: one append-only history record per mutation

SEE ALSO:
  - validate.go: field validation before any transition
  - store.go: persistence interface
*/
package booking

import (
	"time"

	"github.com/tripdesk/backoffice/ledger"
)

// =============================================================================
// CLOSED SETS - Platform, Status, Category
// =============================================================================

// Platform identifies where a booking was sold. The set is closed: the
// reconciliation routing rule switches over it exhaustively, so adding a
// platform forces a review of that rule.
type Platform string

const (
	PlatformDirect  Platform = "Direct"
	PlatformAgencyA Platform = "AgencyA"
	PlatformAgencyB Platform = "AgencyB"
)

func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformDirect, PlatformAgencyA, PlatformAgencyB:
		return Platform(s), true
	}
	return "", false
}

// Wallet returns the pre-funded wallet backing an agency platform.
// Direct bookings have no platform wallet.
func (p Platform) Wallet() (ledger.WalletKey, bool) {
	switch p {
	case PlatformAgencyA:
		return ledger.WalletAgencyA, true
	case PlatformAgencyB:
		return ledger.WalletAgencyB, true
	default:
		return "", false
	}
}

// Status is the booking lifecycle state. Only confirmed bookings have a
// live wallet effect.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// Category is informational for the ledger; it never affects routing.
type Category string

const (
	CategoryFlight Category = "flight"
	CategoryBus    Category = "bus"
	CategoryTrain  Category = "train"
	CategoryCab    Category = "cab"
	CategoryHotel  Category = "hotel"
)

func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryFlight, CategoryBus, CategoryTrain, CategoryCab, CategoryHotel:
		return Category(s), true
	}
	return "", false
}

// =============================================================================
// BOOKING - The record
// =============================================================================

type Booking struct {
	ID            string
	CustomerName  string
	Email         string
	ContactNumber string
	Date          time.Time
	Category      Category
	Platform      Platform
	Status        Status

	BasePay    ledger.Amount
	Commission ledger.Amount
	Markup     ledger.Amount

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalRevenue is basePay + commission + markup. Derived, never stored.
func (b Booking) TotalRevenue() ledger.Amount {
	return b.BasePay.Add(b.Commission).Add(b.Markup)
}

// NetProfit is the margin retained by the agency. Direct bookings keep
// basePay + markup; agency bookings keep commission + markup (basePay
// passes through to the agency's wallet).
func (b Booking) NetProfit() ledger.Amount {
	if b.Platform == PlatformDirect {
		return b.BasePay.Add(b.Markup)
	}
	return b.Commission.Add(b.Markup)
}

// =============================================================================
// EDIT HISTORY - Append-only per-booking trail
// =============================================================================

// FieldChange records one field's old and new value inside an edit.
type FieldChange struct {
	Field string
	From  string
	To    string
}

// EditEntry is one append-only history record: who changed what, when.
type EditEntry struct {
	ID        string
	BookingID string
	Timestamp time.Time
	User      string
	Changes   []FieldChange
}

// Diff lists the fields that differ between old and new, in a stable
// order, formatted for the edit history.
func Diff(old, new Booking) []FieldChange {
	var changes []FieldChange
	add := func(field, from, to string) {
		if from != to {
			changes = append(changes, FieldChange{Field: field, From: from, To: to})
		}
	}

	add("customerName", old.CustomerName, new.CustomerName)
	add("email", old.Email, new.Email)
	add("contactNumber", old.ContactNumber, new.ContactNumber)
	add("date", old.Date.Format("2006-01-02"), new.Date.Format("2006-01-02"))
	add("category", string(old.Category), string(new.Category))
	add("platform", string(old.Platform), string(new.Platform))
	add("status", string(old.Status), string(new.Status))
	add("basePay", old.BasePay.String(), new.BasePay.String())
	add("commission", old.Commission.String(), new.Commission.String())
	add("markup", old.Markup.String(), new.Markup.String())
	return changes
}
