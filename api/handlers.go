/*
handlers.go - HTTP API handlers for the back-office dashboard

PURPOSE:
  Exposes the booking lifecycle, the wallet ledger, and the audit trail
  via REST. Handles HTTP request/response and JSON serialization, and
  delegates everything else to the lifecycle controller.

ENDPOINTS:
  Auth:
    POST   /api/login                          Demo-credential login

  Bookings:
    GET    /api/bookings                       List bookings
    POST   /api/bookings                       Create booking
    GET    /api/bookings/{id}                  Get booking
    PUT    /api/bookings/{id}                  Edit booking
    DELETE /api/bookings/{id}                  Delete booking
    POST   /api/bookings/{id}/status           Set lifecycle status
    GET    /api/bookings/{id}/history          Merged audit trail

  Wallets:
    GET    /api/wallets                        Balances
    GET    /api/wallets/{key}/transactions     Per-wallet ledger
    POST   /api/wallets/{key}/adjustments      Manual credit/debit

  Reports:
    GET    /api/reports/summary                Dashboard headline numbers

ERROR HANDLING:
  Errors are returned as JSON with the status the error kind implies:
  - 400: validation failures, malformed amounts
  - 404: unknown booking or wallet
  - 409: a debit would take a wallet below zero
  - 502: the backing store's atomic call did not complete
  - 500: everything else

SEE ALSO:
  - dto.go: request/response data structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tripdesk/backoffice/audit"
	"github.com/tripdesk/backoffice/booking"
	"github.com/tripdesk/backoffice/config"
	"github.com/tripdesk/backoffice/ledger"
	"github.com/tripdesk/backoffice/lifecycle"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Controller *lifecycle.Controller
	Trail      *audit.Assembler
	Auth       config.AuthConfig
}

// NewHandler creates a handler over the controller and trail assembler.
func NewHandler(controller *lifecycle.Controller, trail *audit.Assembler, auth config.AuthConfig) *Handler {
	return &Handler{Controller: controller, Trail: trail, Auth: auth}
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// ListBookings returns all bookings, newest first.
// GET /api/bookings
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Controller.Bookings(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBooking creates a booking. Status defaults to pending; creating
// directly as confirmed applies the wallet effect atomically.
// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := bookingFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking", err)
		return
	}

	created, err := h.Controller.CreateBooking(r.Context(), b, currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(created))
}

// GetBooking returns one booking.
// GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Controller.Booking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// EditBooking replaces a booking's editable fields. While confirmed, the
// old wallet effect is reversed and the new one applied, atomically.
// PUT /api/bookings/{id}
func (h *Handler) EditBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := bookingFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking", err)
		return
	}
	b.ID = chi.URLParam(r, "id")
	if b.Status == "" {
		// Status untouched by a plain field edit; carry the current one.
		current, err := h.Controller.Booking(r.Context(), b.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		b.Status = current.Status
	}

	updated, err := h.Controller.EditBooking(r.Context(), b, currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(updated))
}

// DeleteBooking removes a booking, reversing its wallet effect first if
// it is confirmed.
// DELETE /api/bookings/{id}
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.Controller.DeleteBooking(r.Context(), chi.URLParam(r, "id"), currentUser(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStatus moves a booking between lifecycle states.
// POST /api/bookings/{id}/status
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Controller.SetStatus(r.Context(), chi.URLParam(r, "id"), booking.Status(req.Status), currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// GetHistory returns the merged audit trail for a booking. Works for
// deleted bookings too: the ledger entries outlive the record.
// GET /api/bookings/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Trail.HistoryFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toHistoryEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

// ListWallets returns the three wallet balances.
// GET /api/wallets
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.Controller.Wallets(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTOs(wallets))
}

// WalletTransactions returns a wallet's ledger, newest first.
// GET /api/wallets/{key}/transactions?limit=N
func (h *Handler) WalletTransactions(w http.ResponseWriter, r *http.Request) {
	key, ok := ledger.ParseWalletKey(chi.URLParam(r, "key"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown wallet", nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", nil)
			return
		}
		limit = n
	}

	txs, err := h.Controller.WalletTransactions(r.Context(), key, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AdjustWallet records a manual credit or debit, e.g. topping up an
// agency wallet.
// POST /api/wallets/{key}/adjustments
func (h *Handler) AdjustWallet(w http.ResponseWriter, r *http.Request) {
	key, ok := ledger.ParseWalletKey(chi.URLParam(r, "key"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown wallet", nil)
		return
	}

	var req AdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var op ledger.Operation
	switch req.Operation {
	case string(ledger.OpCredit):
		op = ledger.OpCredit
	case string(ledger.OpDebit):
		op = ledger.OpDebit
	default:
		writeError(w, http.StatusBadRequest, "Operation must be credit or debit", nil)
		return
	}

	err := h.Controller.AdjustWallet(r.Context(), key, op, ledger.NewAmount(req.Amount), currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// Summary returns the dashboard headline numbers. Pure aggregation over
// bookings and balances; no ledger mutation.
// GET /api/reports/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Controller.Bookings(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	wallets, err := h.Controller.Wallets(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	byStatus := map[string]int{
		string(booking.StatusPending):   0,
		string(booking.StatusConfirmed): 0,
		string(booking.StatusCancelled): 0,
	}
	revenue := ledger.Zero()
	profit := ledger.Zero()
	for _, b := range bookings {
		byStatus[string(b.Status)]++
		if b.Status == booking.StatusConfirmed {
			revenue = revenue.Add(b.TotalRevenue())
			profit = profit.Add(b.NetProfit())
		}
	}

	writeJSON(w, http.StatusOK, SummaryDTO{
		TotalBookings: len(bookings),
		ByStatus:      byStatus,
		TotalRevenue:  revenue.String(),
		NetProfit:     profit.String(),
		Wallets:       toWalletDTOs(wallets),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func bookingFromRequest(req BookingRequest) (booking.Booking, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return booking.Booking{}, &booking.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return booking.Booking{
		CustomerName:  req.CustomerName,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		Date:          date,
		Category:      booking.Category(req.Category),
		Platform:      booking.Platform(req.Platform),
		Status:        booking.Status(req.Status),
		BasePay:       ledger.NewAmount(req.BasePay),
		Commission:    ledger.NewAmount(req.Commission),
		Markup:        ledger.NewAmount(req.Markup),
	}, nil
}

func toWalletDTOs(wallets []ledger.Wallet) []WalletDTO {
	dtos := make([]WalletDTO, len(wallets))
	for i, w := range wallets {
		dtos[i] = WalletDTO{Key: string(w.Key), Balance: w.Balance.String()}
	}
	return dtos
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation), errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "Insufficient funds", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrRemoteFailure):
		writeError(w, http.StatusBadGateway, "Store unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
