/*
mirror.go - Local read cache over the relational store

PURPOSE:
  The store is the single source of truth. The mirror holds the last
  known wallet balances and point-looked-up bookings so repeated
  dashboard reads don't hit the database, and is invalidated wholesale
  after every successful write. It is never authoritative: a miss always
  falls through to the store.
*/
package lifecycle

import (
	"sync"

	"github.com/tripdesk/backoffice/booking"
	"github.com/tripdesk/backoffice/ledger"
)

type mirror struct {
	mu          sync.RWMutex
	bookings    map[string]booking.Booking
	walletRows  []ledger.Wallet
	walletsWarm bool
}

func newMirror() *mirror {
	return &mirror{bookings: make(map[string]booking.Booking)}
}

// invalidate drops everything. Called after every successful write; the
// next read refills from the store.
func (m *mirror) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = make(map[string]booking.Booking)
	m.walletRows = nil
	m.walletsWarm = false
}

func (m *mirror) booking(id string) (booking.Booking, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	return b, ok
}

func (m *mirror) putBooking(b booking.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

func (m *mirror) wallets() ([]ledger.Wallet, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.walletsWarm {
		return nil, false
	}
	return append([]ledger.Wallet{}, m.walletRows...), true
}

func (m *mirror) putWallets(wallets []ledger.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.walletRows = append([]ledger.Wallet{}, wallets...)
	m.walletsWarm = true
}
