package ledger

import (
	"context"
	"strings"
	"sync"

	"github.com/layer-3/aeralogin/ports"
)

// MemoryLedger stands in for the chain when no contracts are configured
type MemoryLedger struct {
	mu     sync.Mutex
	nft    map[string]bool
	scores map[string]int64
	err    error
	calls  int
}

// NewMemoryLedger creates an empty ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		nft:    make(map[string]bool),
		scores: make(map[string]int64),
	}
}

var _ ports.Ledger = (*MemoryLedger)(nil)

// GrantNFT gives address an identity NFT
func (l *MemoryLedger) GrantNFT(address string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nft[strings.ToLower(address)] = true
}

// FailWith makes every call return err until cleared with nil
func (l *MemoryLedger) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// Calls returns the number of calls made so far
func (l *MemoryLedger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *MemoryLedger) HasIdentityNFT(_ context.Context, address string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return false, l.err
	}
	return l.nft[strings.ToLower(address)], nil
}

func (l *MemoryLedger) Score(_ context.Context, address string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return 0, l.err
	}
	return l.scores[strings.ToLower(address)], nil
}

func (l *MemoryLedger) SetScore(_ context.Context, address string, score int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return l.err
	}
	l.scores[strings.ToLower(address)] = score
	return nil
}
