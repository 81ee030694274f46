/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

AMOUNTS:
  Monetary amounts are decimal strings in responses (no float drift on
  the wire) and JSON numbers in requests (what the dashboard forms send).

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"time"

	"github.com/tripdesk/backoffice/audit"
	"github.com/tripdesk/backoffice/booking"
	"github.com/tripdesk/backoffice/ledger"
)

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// =============================================================================
// BOOKINGS
// =============================================================================

// BookingRequest is the payload for creating or editing a booking.
type BookingRequest struct {
	CustomerName  string  `json:"customer_name"`
	Email         string  `json:"email"`
	ContactNumber string  `json:"contact_number"`
	Date          string  `json:"date"` // 2006-01-02
	Category      string  `json:"category"`
	Platform      string  `json:"platform"`
	Status        string  `json:"status,omitempty"`
	BasePay       float64 `json:"base_pay"`
	Commission    float64 `json:"commission"`
	Markup        float64 `json:"markup"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type BookingDTO struct {
	ID            string `json:"id"`
	CustomerName  string `json:"customer_name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
	Date          string `json:"date"`
	Category      string `json:"category"`
	Platform      string `json:"platform"`
	Status        string `json:"status"`
	BasePay       string `json:"base_pay"`
	Commission    string `json:"commission"`
	Markup        string `json:"markup"`
	TotalRevenue  string `json:"total_revenue"`
	NetProfit     string `json:"net_profit"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toBookingDTO(b booking.Booking) BookingDTO {
	return BookingDTO{
		ID:            b.ID,
		CustomerName:  b.CustomerName,
		Email:         b.Email,
		ContactNumber: b.ContactNumber,
		Date:          b.Date.Format("2006-01-02"),
		Category:      string(b.Category),
		Platform:      string(b.Platform),
		Status:        string(b.Status),
		BasePay:       b.BasePay.String(),
		Commission:    b.Commission.String(),
		Markup:        b.Markup.String(),
		TotalRevenue:  b.TotalRevenue().String(),
		NetProfit:     b.NetProfit().String(),
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// WALLETS
// =============================================================================

type WalletDTO struct {
	Key     string `json:"key"`
	Balance string `json:"balance"`
}

type TransactionDTO struct {
	ID        string `json:"id"`
	Wallet    string `json:"wallet"`
	Amount    string `json:"amount"`
	Operation string `json:"operation"`
	BookingID string `json:"booking_id,omitempty"`
	Action    string `json:"action"`
	User      string `json:"user"`
	CreatedAt string `json:"created_at"`
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:        string(tx.ID),
		Wallet:    string(tx.Wallet),
		Amount:    tx.Amount.String(),
		Operation: string(tx.Op),
		BookingID: tx.BookingID,
		Action:    string(tx.Action),
		User:      tx.User,
		CreatedAt: tx.CreatedAt.Format(time.RFC3339Nano),
	}
}

// AdjustmentRequest is a manual wallet credit or debit.
type AdjustmentRequest struct {
	Operation string  `json:"operation"` // "credit" or "debit"
	Amount    float64 `json:"amount"`
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

type FieldChangeDTO struct {
	Field string `json:"field"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

type EditEntryDTO struct {
	ID        string           `json:"id"`
	User      string           `json:"user"`
	Timestamp string           `json:"timestamp"`
	Changes   []FieldChangeDTO `json:"changes"`
}

// HistoryEntryDTO is one line of a booking's merged trail. Exactly one
// of Edit and Transaction is set, matching Type.
type HistoryEntryDTO struct {
	Type        string          `json:"type"` // "edit" or "transaction"
	Timestamp   string          `json:"timestamp"`
	Edit        *EditEntryDTO   `json:"edit,omitempty"`
	Transaction *TransactionDTO `json:"transaction,omitempty"`
}

func toHistoryEntryDTO(e audit.Entry) HistoryEntryDTO {
	dto := HistoryEntryDTO{
		Type:      string(e.Kind),
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
	}
	switch e.Kind {
	case audit.KindEdit:
		changes := make([]FieldChangeDTO, len(e.Edit.Changes))
		for i, ch := range e.Edit.Changes {
			changes[i] = FieldChangeDTO{Field: ch.Field, From: ch.From, To: ch.To}
		}
		dto.Edit = &EditEntryDTO{
			ID:        e.Edit.ID,
			User:      e.Edit.User,
			Timestamp: e.Edit.Timestamp.Format(time.RFC3339Nano),
			Changes:   changes,
		}
	case audit.KindTransaction:
		tx := toTransactionDTO(*e.Transaction)
		dto.Transaction = &tx
	}
	return dto
}

// =============================================================================
// REPORTS
// =============================================================================

// SummaryDTO is the dashboard's headline numbers. Revenue and profit sum
// over confirmed bookings only; pending and cancelled bookings have no
// live financial effect.
type SummaryDTO struct {
	TotalBookings int            `json:"total_bookings"`
	ByStatus      map[string]int `json:"by_status"`
	TotalRevenue  string         `json:"total_revenue"`
	NetProfit     string         `json:"net_profit"`
	Wallets       []WalletDTO    `json:"wallets"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
