/*
handlers_test.go - HTTP surface, wired end to end

Drives the full router over a real in-memory SQLite store: login for a
token, then exercise bookings, wallets, history and the summary report,
including the error-to-status mapping.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/backoffice/api"
	"github.com/tripdesk/backoffice/audit"
	"github.com/tripdesk/backoffice/config"
	"github.com/tripdesk/backoffice/lifecycle"
	"github.com/tripdesk/backoffice/store/sqlite"
)

type testServer struct {
	router http.Handler
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	auth := config.AuthConfig{
		JWTSecret:          "test-secret",
		DemoUser:           "admin",
		DemoPassword:       "admin123",
		TokenExpiryMinutes: 60,
	}
	controller := lifecycle.NewController(store, nil)
	handler := api.NewHandler(controller, audit.NewAssembler(store, store), auth)
	ts := &testServer{router: api.NewRouter(handler)}

	// Login once; every authenticated request reuses the token.
	resp := ts.do(t, http.MethodPost, "/api/login", map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var login api.LoginResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	ts.token = login.Token
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func bookingPayload(platform string, basePay, commission, markup float64) map[string]any {
	return map[string]any{
		"customer_name":  "Lena Fernandes",
		"email":          "lena@example.com",
		"contact_number": "9876543210",
		"date":           "2026-07-15",
		"category":       "hotel",
		"platform":       platform,
		"base_pay":       basePay,
		"commission":     commission,
		"markup":         markup,
	}
}

func (ts *testServer) createBooking(t *testing.T, payload map[string]any) api.BookingDTO {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/bookings", payload)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var dto api.BookingDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dto))
	return dto
}

func (ts *testServer) walletBalance(t *testing.T, key string) string {
	t.Helper()
	resp := ts.do(t, http.MethodGet, "/api/wallets", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var wallets []api.WalletDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &wallets))
	for _, w := range wallets {
		if w.Key == key {
			return w.Balance
		}
	}
	t.Fatalf("wallet %s not in response", key)
	return ""
}

func TestAPI_LoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	resp := ts.do(t, http.MethodPost, "/api/login", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAPI_AuthRequired(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	resp := ts.do(t, http.MethodGet, "/api/bookings", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	ts.token = "not-a-jwt"
	resp = ts.do(t, http.MethodGet, "/api/bookings", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAPI_CreateBookingDefaultsToPending(t *testing.T) {
	ts := newTestServer(t)

	dto := ts.createBooking(t, bookingPayload("Direct", 1000, 0, 200))
	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, "1200", dto.TotalRevenue)
	assert.Equal(t, "1200", dto.NetProfit)
	assert.NotEmpty(t, dto.ID)

	resp := ts.do(t, http.MethodGet, "/api/bookings/"+dto.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAPI_CreateBookingRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	payload := bookingPayload("Direct", 100, 0, 0)
	payload["email"] = "nope"
	resp := ts.do(t, http.MethodPost, "/api/bookings", payload)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Unknown fields are rejected, not silently dropped.
	payload = bookingPayload("Direct", 100, 0, 0)
	payload["surprise"] = true
	resp = ts.do(t, http.MethodPost, "/api/bookings", payload)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	payload = bookingPayload("Direct", 100, 0, 0)
	payload["date"] = "15/07/2026"
	resp = ts.do(t, http.MethodPost, "/api/bookings", payload)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAPI_ConfirmMovesMoney(t *testing.T) {
	// GIVEN: agencyA topped up to 1000 and an AgencyA booking 500/50/100
	// WHEN: confirming over HTTP
	// THEN: wallet balances reflect the three legs

	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/wallets/agencyA/adjustments", map[string]any{
		"operation": "credit", "amount": 1000,
	})
	require.Equal(t, http.StatusNoContent, resp.Code)

	dto := ts.createBooking(t, bookingPayload("AgencyA", 500, 50, 100))

	resp = ts.do(t, http.MethodPost, "/api/bookings/"+dto.ID+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	assert.Equal(t, "550", ts.walletBalance(t, "agencyA"))
	assert.Equal(t, "600", ts.walletBalance(t, "office"))
}

func TestAPI_UnderfundedConfirmConflicts(t *testing.T) {
	ts := newTestServer(t)

	dto := ts.createBooking(t, bookingPayload("AgencyB", 2000, 50, 100))

	resp := ts.do(t, http.MethodPost, "/api/bookings/"+dto.ID+"/status", map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	assert.Equal(t, "Insufficient funds", errResp.Error)

	assert.Equal(t, "0", ts.walletBalance(t, "agencyB"))
}

func TestAPI_UnknownBookingIs404(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/bookings/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.do(t, http.MethodDelete, "/api/bookings/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPI_DeleteConfirmedRefundsAndKeepsHistory(t *testing.T) {
	ts := newTestServer(t)

	dto := ts.createBooking(t, bookingPayload("Direct", 1000, 0, 200))
	resp := ts.do(t, http.MethodPost, "/api/bookings/"+dto.ID+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "1200", ts.walletBalance(t, "office"))

	resp = ts.do(t, http.MethodDelete, "/api/bookings/"+dto.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "0", ts.walletBalance(t, "office"))

	// The trail survives the record: the refund legs are still there.
	resp = ts.do(t, http.MethodGet, "/api/bookings/"+dto.ID+"/history", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var trail []api.HistoryEntryDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &trail))
	require.NotEmpty(t, trail)
	assert.Equal(t, "transaction", trail[0].Type)
	assert.Equal(t, "refund_on_delete", trail[0].Transaction.Action)
}

func TestAPI_EditBookingKeepsStatus(t *testing.T) {
	// A field edit without a status in the payload must not unconfirm.
	ts := newTestServer(t)

	dto := ts.createBooking(t, bookingPayload("Direct", 1000, 0, 200))
	resp := ts.do(t, http.MethodPost, "/api/bookings/"+dto.ID+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, resp.Code)

	payload := bookingPayload("Direct", 1000, 0, 300)
	resp = ts.do(t, http.MethodPut, "/api/bookings/"+dto.ID, payload)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var updated api.BookingDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "confirmed", updated.Status)
	assert.Equal(t, "300", updated.Markup)

	assert.Equal(t, "1300", ts.walletBalance(t, "office"), "old effect reversed, new applied")
}

func TestAPI_WalletTransactions(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := ts.do(t, http.MethodPost, "/api/wallets/office/adjustments", map[string]any{
			"operation": "credit", "amount": float64(10 * (i + 1)),
		})
		require.Equal(t, http.StatusNoContent, resp.Code)
	}

	resp := ts.do(t, http.MethodGet, "/api/wallets/office/transactions?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var txs []api.TransactionDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &txs))
	require.Len(t, txs, 2)
	assert.Equal(t, "30", txs[0].Amount, "newest first")
	assert.Equal(t, "manual_adjust", txs[0].Action)
	assert.Equal(t, "admin", txs[0].User)

	resp = ts.do(t, http.MethodGet, "/api/wallets/piggy-bank/transactions", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.do(t, http.MethodGet, "/api/wallets/office/transactions?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAPI_AdjustmentValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/wallets/office/adjustments", map[string]any{
		"operation": "withdraw", "amount": 10,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.do(t, http.MethodPost, "/api/wallets/office/adjustments", map[string]any{
		"operation": "credit", "amount": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code, "zero amounts are invalid")

	resp = ts.do(t, http.MethodPost, "/api/wallets/office/adjustments", map[string]any{
		"operation": "debit", "amount": 10,
	})
	assert.Equal(t, http.StatusConflict, resp.Code, "debit from an empty wallet")
}

func TestAPI_Summary(t *testing.T) {
	ts := newTestServer(t)

	confirmed := ts.createBooking(t, bookingPayload("Direct", 1000, 0, 200))
	resp := ts.do(t, http.MethodPost, "/api/bookings/"+confirmed.ID+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, resp.Code)
	ts.createBooking(t, bookingPayload("Direct", 500, 0, 50))

	resp = ts.do(t, http.MethodGet, "/api/reports/summary", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var summary api.SummaryDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalBookings)
	assert.Equal(t, 1, summary.ByStatus["confirmed"])
	assert.Equal(t, 1, summary.ByStatus["pending"])
	assert.Equal(t, "1200", summary.TotalRevenue, "confirmed bookings only")
	assert.Equal(t, "1200", summary.NetProfit)
	assert.Len(t, summary.Wallets, 3)
}

func TestAPI_ListBookings(t *testing.T) {
	ts := newTestServer(t)

	first := ts.createBooking(t, bookingPayload("Direct", 100, 0, 0))
	second := ts.createBooking(t, bookingPayload("AgencyA", 200, 20, 0))

	resp := ts.do(t, http.MethodGet, "/api/bookings", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var list []api.BookingDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list, 2)

	ids := fmt.Sprintf("%s,%s", list[0].ID, list[1].ID)
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}
