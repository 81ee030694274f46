/*
ledger_test.go - Wallet ledger invariants

Covers:
- credit/debit move balances and always pair with a log entry
- zero/negative amounts are rejected before any mutation
- a debit that would go below zero fails atomically
- TransactionsFor is newest-first and booking-scoped
- WithTx rolls every staged mutation back on error
*/
package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/backoffice/ledger"
	"github.com/tripdesk/backoffice/ledger/store"
)

func newLedger() (*ledger.DefaultLedger, *store.Memory) {
	mem := store.NewMemory()
	return ledger.New(mem), mem
}

func amt(v float64) ledger.Amount { return ledger.NewAmount(v) }

func TestLedger_CreditIncreasesBalanceAndLogs(t *testing.T) {
	// GIVEN: an empty office wallet
	// WHEN: crediting 1200
	// THEN: balance is 1200 and one credit entry is logged

	l, _ := newLedger()
	ctx := context.Background()

	err := l.Credit(ctx, ledger.WalletOffice, amt(1200), "op-1", ledger.Meta{BookingID: "bk-1", Action: ledger.ActionApply})
	require.NoError(t, err)

	balance, err := l.Balance(ctx, ledger.WalletOffice)
	require.NoError(t, err)
	assert.True(t, balance.Equal(amt(1200)), "balance should be 1200, got %s", balance)

	txs, err := l.TransactionsFor(ctx, "bk-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.OpCredit, txs[0].Op)
	assert.Equal(t, ledger.ActionApply, txs[0].Action)
	assert.Equal(t, "op-1", txs[0].User)
	assert.True(t, txs[0].Amount.Equal(amt(1200)))
}

func TestLedger_DebitDecreasesBalance(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()

	require.NoError(t, l.Credit(ctx, ledger.WalletAgencyA, amt(1000), "op-1", ledger.Meta{Action: ledger.ActionManualAdjust}))
	require.NoError(t, l.Debit(ctx, ledger.WalletAgencyA, amt(400), "op-1", ledger.Meta{Action: ledger.ActionManualAdjust}))

	balance, err := l.Balance(ctx, ledger.WalletAgencyA)
	require.NoError(t, err)
	assert.True(t, balance.Equal(amt(600)))
}

func TestLedger_ZeroAndNegativeAmountsRejected(t *testing.T) {
	// GIVEN: any wallet
	// WHEN: crediting or debiting a non-positive amount
	// THEN: ErrInvalidAmount, and nothing is logged or mutated

	l, _ := newLedger()
	ctx := context.Background()

	err := l.Credit(ctx, ledger.WalletOffice, amt(0), "op-1", ledger.Meta{})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	err = l.Debit(ctx, ledger.WalletOffice, amt(-5), "op-1", ledger.Meta{})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	balance, err := l.Balance(ctx, ledger.WalletOffice)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	txs, err := l.Store.Transactions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, txs, "rejected operations must not log entries")
}

func TestLedger_DebitBelowZeroFailsAtomically(t *testing.T) {
	// GIVEN: agencyA holds 100
	// WHEN: debiting 2000
	// THEN: ErrInsufficientFunds with details, balance still 100, no entry

	l, _ := newLedger()
	ctx := context.Background()

	require.NoError(t, l.Credit(ctx, ledger.WalletAgencyA, amt(100), "op-1", ledger.Meta{Action: ledger.ActionManualAdjust}))

	err := l.Debit(ctx, ledger.WalletAgencyA, amt(2000), "op-1", ledger.Meta{BookingID: "bk-1", Action: ledger.ActionApply})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	var insufficient *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, ledger.WalletAgencyA, insufficient.Wallet)
	assert.True(t, insufficient.Available.Equal(amt(100)))
	assert.True(t, insufficient.Requested.Equal(amt(2000)))

	balance, err := l.Balance(ctx, ledger.WalletAgencyA)
	require.NoError(t, err)
	assert.True(t, balance.Equal(amt(100)), "failed debit must not change the balance")

	txs, err := l.TransactionsFor(ctx, "bk-1")
	require.NoError(t, err)
	assert.Empty(t, txs, "failed debit must not log an entry")
}

func TestLedger_TransactionsForNewestFirstAndScoped(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()

	require.NoError(t, l.Credit(ctx, ledger.WalletOffice, amt(100), "op-1", ledger.Meta{BookingID: "bk-1", Action: ledger.ActionApply}))
	require.NoError(t, l.Credit(ctx, ledger.WalletOffice, amt(50), "op-1", ledger.Meta{BookingID: "bk-2", Action: ledger.ActionApply}))
	require.NoError(t, l.Debit(ctx, ledger.WalletOffice, amt(100), "op-1", ledger.Meta{BookingID: "bk-1", Action: ledger.ActionReverse}))

	txs, err := l.TransactionsFor(ctx, "bk-1")
	require.NoError(t, err)
	require.Len(t, txs, 2, "bk-2's entry must not appear")
	assert.Equal(t, ledger.ActionReverse, txs[0].Action, "newest first")
	assert.Equal(t, ledger.ActionApply, txs[1].Action)
}

func TestLedger_UnknownWallet(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()

	_, err := l.Balance(ctx, ledger.WalletKey("petty-cash"))
	assert.ErrorIs(t, err, ledger.ErrWalletNotFound)
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: a transactional store with office holding 500
	// WHEN: a transaction credits, then fails
	// THEN: the credit and its log entry are rolled back

	mem := store.NewTxMemory()
	ctx := context.Background()
	mem.SetBalance(ledger.WalletOffice, amt(500))

	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(s ledger.Store) error {
		l := ledger.New(s)
		if err := l.Credit(ctx, ledger.WalletOffice, amt(100), "op-1", ledger.Meta{BookingID: "bk-1", Action: ledger.ActionApply}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := mem.Wallet(ctx, ledger.WalletOffice)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(amt(500)), "rolled-back credit must not stick")

	txs, err := mem.TransactionsFor(ctx, "bk-1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTxMemory_CommitKeepsWrites(t *testing.T) {
	mem := store.NewTxMemory()
	ctx := context.Background()

	err := mem.WithTx(ctx, func(s ledger.Store) error {
		return ledger.New(s).Credit(ctx, ledger.WalletAgencyB, amt(250), "op-1", ledger.Meta{Action: ledger.ActionManualAdjust})
	})
	require.NoError(t, err)

	w, err := mem.Wallet(ctx, ledger.WalletAgencyB)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(amt(250)))
}
