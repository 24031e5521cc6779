package engine

import (
	"fmt"
	"sync"

	"github.com/veilmarket/veilmarket/types"
)

// MemoryLedger is an in-process TokenTransfer backend keeping plaintext
// balances per (mint, holder). It backs tests and single-node deployments;
// production deployments wire a real custody service instead.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[types.AccountID]map[types.AccountID]uint64
	escrow   map[types.AccountID]uint64
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[types.AccountID]map[types.AccountID]uint64),
		escrow:   make(map[types.AccountID]uint64),
	}
}

// Credit funds a holder's balance out of thin air. It exists so tests and
// local deployments can bootstrap collateral.
func (l *MemoryLedger) Credit(mint, holder types.AccountID, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[mint] == nil {
		l.balances[mint] = make(map[types.AccountID]uint64)
	}
	l.balances[mint][holder] += amount
}

// Balance returns a holder's current balance of a mint.
func (l *MemoryLedger) Balance(mint, holder types.AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[mint][holder]
}

// Escrowed returns the total amount of a mint currently held in escrow.
func (l *MemoryLedger) Escrowed(mint types.AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.escrow[mint]
}

// Deposit implements TokenTransfer.
func (l *MemoryLedger) Deposit(mint, from types.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[mint][from] < amount {
		return fmt.Errorf("holder %s has %d of mint %s, needs %d",
			from, l.balances[mint][from], mint, amount)
	}
	l.balances[mint][from] -= amount
	l.escrow[mint] += amount
	return nil
}

// Release implements TokenTransfer.
func (l *MemoryLedger) Release(mint, to types.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.escrow[mint] < amount {
		return fmt.Errorf("escrow holds %d of mint %s, needs %d", l.escrow[mint], mint, amount)
	}
	l.escrow[mint] -= amount
	if l.balances[mint] == nil {
		l.balances[mint] = make(map[types.AccountID]uint64)
	}
	l.balances[mint][to] += amount
	return nil
}
