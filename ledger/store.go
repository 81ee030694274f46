/*
store.go - Persistence interface for wallets and transactions

PURPOSE:
  Defines the interface between the ledger and the database. The Store
  persists wallet balances and the append-only transaction log. Different
  implementations can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  The transaction log has exactly one write operation, Append. There is
  no Update and no Delete; corrections are new opposite-direction entries.

BALANCE MUTATION:
  CreditWallet and DebitWallet mutate the materialized balance. The Store
  must evaluate DebitWallet's sufficiency check and the mutation against
  the same pre-mutation snapshot: a failing debit leaves the row untouched.

ATOMICITY:
  WithTx (on TxStore) brackets a multi-step booking transition in a single
  all-or-nothing unit. A failure anywhere inside rolls back every balance
  mutation and every appended transaction.

IMPLEMENTATIONS:
  - store/sqlite: production store over the relational database
  - ledger/store: in-memory store for tests and dev

SEE ALSO:
  - ledger.go: higher-level credit/debit primitives using Store
*/
package ledger

import "context"

// Store handles persistence of wallet balances and the transaction log.
type Store interface {
	// Wallet returns the wallet row for key, or ErrWalletNotFound.
	Wallet(ctx context.Context, key WalletKey) (Wallet, error)

	// Wallets returns all wallet rows in display order.
	Wallets(ctx context.Context) ([]Wallet, error)

	// CreditWallet increases key's balance by amount.
	CreditWallet(ctx context.Context, key WalletKey, amount Amount) error

	// DebitWallet decreases key's balance by amount. Fails with
	// ErrInsufficientFunds if amount exceeds the current balance, without
	// mutating the row.
	DebitWallet(ctx context.Context, key WalletKey, amount Amount) error

	// Append adds a transaction to the log. This is the log's ONLY write
	// operation.
	Append(ctx context.Context, tx Transaction) error

	// TransactionsFor returns transactions tagged with bookingID, newest
	// first. Pure query.
	TransactionsFor(ctx context.Context, bookingID string) ([]Transaction, error)

	// Transactions returns the most recent transactions across all
	// wallets, newest first, up to limit (0 = no limit).
	Transactions(ctx context.Context, limit int) ([]Transaction, error)
}

// TxStore wraps Store with transaction support. Use this when a booking
// transition needs several balance mutations and log appends to land
// together or not at all.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
