// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/tripdesk/backoffice/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	balances     map[ledger.WalletKey]ledger.Amount
	transactions []ledger.Transaction
}

func NewMemory() *Memory {
	balances := make(map[ledger.WalletKey]ledger.Amount)
	for _, key := range ledger.AllWallets() {
		balances[key] = ledger.Zero()
	}
	return &Memory{balances: balances}
}

// SetBalance seeds a wallet balance directly. Test setup only; production
// balances move exclusively through CreditWallet/DebitWallet.
func (m *Memory) SetBalance(key ledger.WalletKey, amount ledger.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[key] = amount
}

func (m *Memory) Wallet(_ context.Context, key ledger.WalletKey) (ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	balance, ok := m.balances[key]
	if !ok {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	return ledger.Wallet{Key: key, Balance: balance}, nil
}

func (m *Memory) Wallets(_ context.Context) ([]ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wallets := make([]ledger.Wallet, 0, len(m.balances))
	for _, key := range ledger.AllWallets() {
		if balance, ok := m.balances[key]; ok {
			wallets = append(wallets, ledger.Wallet{Key: key, Balance: balance})
		}
	}
	return wallets, nil
}

func (m *Memory) CreditWallet(_ context.Context, key ledger.WalletKey, amount ledger.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditLocked(key, amount)
}

func (m *Memory) DebitWallet(_ context.Context, key ledger.WalletKey, amount ledger.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debitLocked(key, amount)
}

func (m *Memory) creditLocked(key ledger.WalletKey, amount ledger.Amount) error {
	balance, ok := m.balances[key]
	if !ok {
		return ledger.ErrWalletNotFound
	}
	m.balances[key] = balance.Add(amount)
	return nil
}

func (m *Memory) debitLocked(key ledger.WalletKey, amount ledger.Amount) error {
	balance, ok := m.balances[key]
	if !ok {
		return ledger.ErrWalletNotFound
	}
	// Check and mutation see the same snapshot: nothing changes on failure.
	if amount.GreaterThan(balance) {
		return &ledger.InsufficientFundsError{Wallet: key, Available: balance, Requested: amount}
	}
	m.balances[key] = balance.Sub(amount)
	return nil
}

func (m *Memory) Append(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, tx)
	return nil
}

func (m *Memory) TransactionsFor(_ context.Context, bookingID string) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Appended chronologically; walk backwards for newest-first.
	var result []ledger.Transaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		if m.transactions[i].BookingID == bookingID {
			result = append(result, m.transactions[i])
		}
	}
	return result, nil
}

func (m *Memory) Transactions(_ context.Context, limit int) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Transaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, m.transactions[i])
	}
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot restored on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	balances     map[ledger.WalletKey]ledger.Amount
	transactions []ledger.Transaction
}

func (tm *TxMemory) snapshot() memorySnapshot {
	balances := make(map[ledger.WalletKey]ledger.Amount, len(tm.balances))
	for k, v := range tm.balances {
		balances[k] = v
	}
	return memorySnapshot{
		balances:     balances,
		transactions: append([]ledger.Transaction{}, tm.transactions...),
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.balances = s.balances
	tm.transactions = s.transactions
}

// txMemoryView bypasses the parent's locking (the parent holds the lock
// for the whole transaction).
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) Wallet(_ context.Context, key ledger.WalletKey) (ledger.Wallet, error) {
	balance, ok := tv.parent.balances[key]
	if !ok {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	return ledger.Wallet{Key: key, Balance: balance}, nil
}

func (tv *txMemoryView) Wallets(_ context.Context) ([]ledger.Wallet, error) {
	wallets := make([]ledger.Wallet, 0, len(tv.parent.balances))
	for _, key := range ledger.AllWallets() {
		if balance, ok := tv.parent.balances[key]; ok {
			wallets = append(wallets, ledger.Wallet{Key: key, Balance: balance})
		}
	}
	return wallets, nil
}

func (tv *txMemoryView) CreditWallet(_ context.Context, key ledger.WalletKey, amount ledger.Amount) error {
	return tv.parent.creditLocked(key, amount)
}

func (tv *txMemoryView) DebitWallet(_ context.Context, key ledger.WalletKey, amount ledger.Amount) error {
	return tv.parent.debitLocked(key, amount)
}

func (tv *txMemoryView) Append(_ context.Context, tx ledger.Transaction) error {
	tv.parent.transactions = append(tv.parent.transactions, tx)
	return nil
}

func (tv *txMemoryView) TransactionsFor(_ context.Context, bookingID string) ([]ledger.Transaction, error) {
	var result []ledger.Transaction
	for i := len(tv.parent.transactions) - 1; i >= 0; i-- {
		if tv.parent.transactions[i].BookingID == bookingID {
			result = append(result, tv.parent.transactions[i])
		}
	}
	return result, nil
}

func (tv *txMemoryView) Transactions(_ context.Context, limit int) ([]ledger.Transaction, error) {
	var result []ledger.Transaction
	for i := len(tv.parent.transactions) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, tv.parent.transactions[i])
	}
	return result, nil
}
