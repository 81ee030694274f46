/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements booking.Store, ledger.Store, and the transactional
  lifecycle.Store using SQLite. The same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  wallets:              three rows, materialized balances
  wallet_transactions:  immutable ledger of all wallet movements
  bookings:             booking records
  booking_edits:        append-only per-booking edit history

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statement in this package touches
  wallet_transactions. Reversals are new rows.

NON-NEGATIVE BALANCES:
  DebitWallet reads the balance and conditionally writes inside the same
  locked section (and, under WithTx, the same database transaction), so
  the sufficiency check and the mutation see one snapshot.

ATOMIC PROCEDURES:
  WithTx is the boundary the lifecycle controller brackets each booking
  transition in: the booking write, the edit-history append, and every
  wallet leg commit together or roll back together.

REMOTE FAILURES:
  Database-level errors surface as ledger.RemoteFailureError. A failed
  call never leaves a partial commit behind; the caller's view of store
  state is unchanged.

CONCURRENCY:
  sync.RWMutex plus WAL mode. The system is single-operator; the mutex is
  about driver safety, not contention.

USAGE:
  store, err := sqlite.New("./data/backoffice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go, booking/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tripdesk/backoffice/booking"
	"github.com/tripdesk/backoffice/ledger"
	"github.com/tripdesk/backoffice/lifecycle"
)

// Store implements lifecycle.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at dbPath. Use ":memory:" for an in-memory
// database. The schema is migrated and the three wallets seeded on open.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: the store serializes access anyway, and with
	// ":memory:" every pooled connection would otherwise see its own
	// empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewWithDB wraps an existing database handle without migrating. Used in
// tests to drive the store against a mocked connection.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Wallets (materialized balances; the log explains every change)
	CREATE TABLE IF NOT EXISTS wallets (
		key TEXT PRIMARY KEY,
		balance TEXT NOT NULL
	);
	INSERT OR IGNORE INTO wallets (key, balance) VALUES
		('agencyA', '0'), ('agencyB', '0'), ('office', '0');

	-- Wallet transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS wallet_transactions (
		id TEXT PRIMARY KEY,
		wallet_key TEXT NOT NULL,
		amount TEXT NOT NULL,
		op TEXT NOT NULL,
		booking_id TEXT,
		action TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_booking
		ON wallet_transactions(booking_id) WHERE booking_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_wallet
		ON wallet_transactions(wallet_key, created_at DESC);

	-- Bookings
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		email TEXT NOT NULL,
		contact_number TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		platform TEXT NOT NULL,
		status TEXT NOT NULL,
		base_pay TEXT NOT NULL,
		commission TEXT NOT NULL,
		markup TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);
	CREATE INDEX IF NOT EXISTS idx_bookings_created ON bookings(created_at DESC);

	-- Booking edit history (append-only; rows go with the booking)
	CREATE TABLE IF NOT EXISTS booking_edits (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		ts TEXT NOT NULL,
		created_by TEXT NOT NULL,
		changes_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_booking_edits_booking
		ON booking_edits(booking_id, ts DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// timeLayout is RFC 3339 with fixed-width nanoseconds, so stored
// timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every operation can
// run either standalone or inside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func remoteErr(op string, err error) error {
	return &ledger.RemoteFailureError{Op: op, Err: err}
}

// =============================================================================
// WALLETS (ledger.Store)
// =============================================================================

func (s *Store) Wallet(ctx context.Context, key ledger.WalletKey) (ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return walletTx(ctx, s.db, key)
}

func walletTx(ctx context.Context, q dbtx, key ledger.WalletKey) (ledger.Wallet, error) {
	var balance string
	err := q.QueryRowContext(ctx, "SELECT balance FROM wallets WHERE key = ?", string(key)).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	if err != nil {
		return ledger.Wallet{}, remoteErr("wallet.get", err)
	}
	return ledger.Wallet{Key: key, Balance: ledger.ParseAmount(balance)}, nil
}

func (s *Store) Wallets(ctx context.Context) ([]ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return walletsTx(ctx, s.db)
}

func walletsTx(ctx context.Context, q dbtx) ([]ledger.Wallet, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT key, balance FROM wallets ORDER BY CASE key WHEN 'agencyA' THEN 1 WHEN 'agencyB' THEN 2 ELSE 3 END")
	if err != nil {
		return nil, remoteErr("wallet.list", err)
	}
	defer rows.Close()

	var wallets []ledger.Wallet
	for rows.Next() {
		var key, balance string
		if err := rows.Scan(&key, &balance); err != nil {
			return nil, remoteErr("wallet.list", err)
		}
		wallets = append(wallets, ledger.Wallet{Key: ledger.WalletKey(key), Balance: ledger.ParseAmount(balance)})
	}
	return wallets, rows.Err()
}

func (s *Store) CreditWallet(ctx context.Context, key ledger.WalletKey, amount ledger.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return creditWalletTx(ctx, s.db, key, amount)
}

func creditWalletTx(ctx context.Context, q dbtx, key ledger.WalletKey, amount ledger.Amount) error {
	w, err := walletTx(ctx, q, key)
	if err != nil {
		return err
	}
	return writeBalance(ctx, q, key, w.Balance.Add(amount))
}

func (s *Store) DebitWallet(ctx context.Context, key ledger.WalletKey, amount ledger.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return debitWalletTx(ctx, s.db, key, amount)
}

func debitWalletTx(ctx context.Context, q dbtx, key ledger.WalletKey, amount ledger.Amount) error {
	w, err := walletTx(ctx, q, key)
	if err != nil {
		return err
	}
	// Check and write against the same snapshot: no mutation on failure.
	if amount.GreaterThan(w.Balance) {
		return &ledger.InsufficientFundsError{Wallet: key, Available: w.Balance, Requested: amount}
	}
	return writeBalance(ctx, q, key, w.Balance.Sub(amount))
}

func writeBalance(ctx context.Context, q dbtx, key ledger.WalletKey, balance ledger.Amount) error {
	_, err := q.ExecContext(ctx, "UPDATE wallets SET balance = ? WHERE key = ?", balance.String(), string(key))
	if err != nil {
		return remoteErr("wallet.update", err)
	}
	return nil
}

// =============================================================================
// WALLET TRANSACTIONS (ledger.Store)
// =============================================================================

func (s *Store) Append(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTx(ctx, s.db, tx)
}

func appendTx(ctx context.Context, q dbtx, tx ledger.Transaction) error {
	var bookingID any
	if tx.BookingID != "" {
		bookingID = tx.BookingID
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO wallet_transactions
			(id, wallet_key, amount, op, booking_id, action, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.ID), string(tx.Wallet), tx.Amount.String(), string(tx.Op),
		bookingID, string(tx.Action), tx.User, tx.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return remoteErr("transaction.append", err)
	}
	return nil
}

const transactionColumns = "id, wallet_key, amount, op, booking_id, action, created_by, created_at"

func (s *Store) TransactionsFor(ctx context.Context, bookingID string) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryTransactions(ctx, s.db,
		"SELECT "+transactionColumns+" FROM wallet_transactions WHERE booking_id = ? ORDER BY created_at DESC, rowid DESC",
		bookingID)
}

func (s *Store) Transactions(ctx context.Context, limit int) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := "SELECT " + transactionColumns + " FROM wallet_transactions ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		return queryTransactions(ctx, s.db, query+" LIMIT ?", limit)
	}
	return queryTransactions(ctx, s.db, query)
}

func queryTransactions(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, remoteErr("transaction.query", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx        ledger.Transaction
		id        string
		wallet    string
		amount    string
		op        string
		bookingID sql.NullString
		action    string
		createdAt string
	)
	if err := rows.Scan(&id, &wallet, &amount, &op, &bookingID, &action, &tx.User, &createdAt); err != nil {
		return tx, remoteErr("transaction.scan", err)
	}

	tx.ID = ledger.TransactionID(id)
	tx.Wallet = ledger.WalletKey(wallet)
	tx.Amount = ledger.ParseAmount(amount)
	tx.Op = ledger.Operation(op)
	tx.BookingID = bookingID.String
	tx.Action = ledger.Action(action)
	tx.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return tx, nil
}

// =============================================================================
// BOOKINGS (booking.Store)
// =============================================================================

const bookingColumns = `id, customer_name, email, contact_number, date, category,
	platform, status, base_pay, commission, markup, created_at, updated_at`

func (s *Store) CreateBooking(ctx context.Context, b booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createBookingTx(ctx, s.db, b)
}

func createBookingTx(ctx context.Context, q dbtx, b booking.Booking) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO bookings (id, customer_name, email, contact_number, date, category,
			platform, status, base_pay, commission, markup, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.CustomerName, b.Email, b.ContactNumber,
		b.Date.UTC().Format("2006-01-02"), string(b.Category), string(b.Platform), string(b.Status),
		b.BasePay.String(), b.Commission.String(), b.Markup.String(),
		b.CreatedAt.UTC().Format(timeLayout), b.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return remoteErr("booking.create", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBookingTx(ctx, s.db, id)
}

func getBookingTx(ctx context.Context, q dbtx, id string) (booking.Booking, error) {
	row := q.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.Booking{}, ledger.ErrNotFound
	}
	if err != nil {
		return booking.Booking{}, remoteErr("booking.get", err)
	}
	return b, nil
}

func (s *Store) ListBookings(ctx context.Context) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBookingsTx(ctx, s.db)
}

func listBookingsTx(ctx context.Context, q dbtx) ([]booking.Booking, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, remoteErr("booking.list", err)
	}
	defer rows.Close()

	var bookings []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, remoteErr("booking.list", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (booking.Booking, error) {
	var (
		b          booking.Booking
		date       string
		category   string
		platform   string
		status     string
		basePay    string
		commission string
		markup     string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&b.ID, &b.CustomerName, &b.Email, &b.ContactNumber,
		&date, &category, &platform, &status,
		&basePay, &commission, &markup, &createdAt, &updatedAt)
	if err != nil {
		return b, err
	}

	b.Date, _ = time.Parse("2006-01-02", date)
	b.Category = booking.Category(category)
	b.Platform = booking.Platform(platform)
	b.Status = booking.Status(status)
	b.BasePay = ledger.ParseAmount(basePay)
	b.Commission = ledger.ParseAmount(commission)
	b.Markup = ledger.ParseAmount(markup)
	b.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	b.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return b, nil
}

func (s *Store) UpdateBooking(ctx context.Context, b booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBookingTx(ctx, s.db, b)
}

func updateBookingTx(ctx context.Context, q dbtx, b booking.Booking) error {
	res, err := q.ExecContext(ctx, `
		UPDATE bookings SET
			customer_name = ?, email = ?, contact_number = ?, date = ?,
			category = ?, platform = ?, status = ?,
			base_pay = ?, commission = ?, markup = ?, updated_at = ?
		WHERE id = ?`,
		b.CustomerName, b.Email, b.ContactNumber, b.Date.UTC().Format("2006-01-02"),
		string(b.Category), string(b.Platform), string(b.Status),
		b.BasePay.String(), b.Commission.String(), b.Markup.String(),
		b.UpdatedAt.UTC().Format(timeLayout), b.ID,
	)
	if err != nil {
		return remoteErr("booking.update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteBookingTx(ctx, s.db, id)
}

func deleteBookingTx(ctx context.Context, q dbtx, id string) error {
	res, err := q.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return remoteErr("booking.delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// =============================================================================
// EDIT HISTORY (booking.Store)
// =============================================================================

func (s *Store) AppendEdit(ctx context.Context, entry booking.EditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEditTx(ctx, s.db, entry)
}

func appendEditTx(ctx context.Context, q dbtx, entry booking.EditEntry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("failed to encode edit changes: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO booking_edits (id, booking_id, ts, created_by, changes_json)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.BookingID, entry.Timestamp.UTC().Format(timeLayout),
		entry.User, string(changes),
	)
	if err != nil {
		return remoteErr("edit.append", err)
	}
	return nil
}

func (s *Store) Edits(ctx context.Context, bookingID string) ([]booking.EditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return editsTx(ctx, s.db, bookingID)
}

func editsTx(ctx context.Context, q dbtx, bookingID string) ([]booking.EditEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, booking_id, ts, created_by, changes_json
		FROM booking_edits WHERE booking_id = ?
		ORDER BY ts DESC, rowid DESC`, bookingID)
	if err != nil {
		return nil, remoteErr("edit.query", err)
	}
	defer rows.Close()

	var entries []booking.EditEntry
	for rows.Next() {
		var (
			entry       booking.EditEntry
			ts          string
			changesJSON string
		)
		if err := rows.Scan(&entry.ID, &entry.BookingID, &ts, &entry.User, &changesJSON); err != nil {
			return nil, remoteErr("edit.scan", err)
		}
		entry.Timestamp, _ = time.Parse(timeLayout, ts)
		json.Unmarshal([]byte(changesJSON), &entry.Changes)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (lifecycle.Store interface)
// =============================================================================

// WithTx executes fn within a database transaction. This is the atomic
// boundary for booking transitions: everything fn does commits together
// or not at all.
func (s *Store) WithTx(ctx context.Context, fn func(lifecycle.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return remoteErr("tx.begin", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return remoteErr("tx.commit", err)
	}
	return nil
}

// txStore routes every operation through the open transaction. The parent
// holds the store lock for the transaction's whole lifetime.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Wallet(ctx context.Context, key ledger.WalletKey) (ledger.Wallet, error) {
	return walletTx(ctx, t.tx, key)
}

func (t *txStore) Wallets(ctx context.Context) ([]ledger.Wallet, error) {
	return walletsTx(ctx, t.tx)
}

func (t *txStore) CreditWallet(ctx context.Context, key ledger.WalletKey, amount ledger.Amount) error {
	return creditWalletTx(ctx, t.tx, key, amount)
}

func (t *txStore) DebitWallet(ctx context.Context, key ledger.WalletKey, amount ledger.Amount) error {
	return debitWalletTx(ctx, t.tx, key, amount)
}

func (t *txStore) Append(ctx context.Context, tx ledger.Transaction) error {
	return appendTx(ctx, t.tx, tx)
}

func (t *txStore) TransactionsFor(ctx context.Context, bookingID string) ([]ledger.Transaction, error) {
	return queryTransactions(ctx, t.tx,
		"SELECT "+transactionColumns+" FROM wallet_transactions WHERE booking_id = ? ORDER BY created_at DESC, rowid DESC",
		bookingID)
}

func (t *txStore) Transactions(ctx context.Context, limit int) ([]ledger.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM wallet_transactions ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		return queryTransactions(ctx, t.tx, query+" LIMIT ?", limit)
	}
	return queryTransactions(ctx, t.tx, query)
}

func (t *txStore) CreateBooking(ctx context.Context, b booking.Booking) error {
	return createBookingTx(ctx, t.tx, b)
}

func (t *txStore) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	return getBookingTx(ctx, t.tx, id)
}

func (t *txStore) ListBookings(ctx context.Context) ([]booking.Booking, error) {
	return listBookingsTx(ctx, t.tx)
}

func (t *txStore) UpdateBooking(ctx context.Context, b booking.Booking) error {
	return updateBookingTx(ctx, t.tx, b)
}

func (t *txStore) DeleteBooking(ctx context.Context, id string) error {
	return deleteBookingTx(ctx, t.tx, id)
}

func (t *txStore) AppendEdit(ctx context.Context, entry booking.EditEntry) error {
	return appendEditTx(ctx, t.tx, entry)
}

func (t *txStore) Edits(ctx context.Context, bookingID string) ([]booking.EditEntry, error) {
	return editsTx(ctx, t.tx, bookingID)
}

// WithTx on a txStore reuses the open transaction. Nested transitions do
// not happen in practice; this keeps the interface total.
func (t *txStore) WithTx(_ context.Context, fn func(lifecycle.Store) error) error {
	return fn(t)
}
