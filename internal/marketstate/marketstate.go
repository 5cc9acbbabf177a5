// Package marketstate holds the per-market state the subscription
// controller's single-threaded loop owns exclusively: prior GD order/balance
// snapshots and the current depth books for both sides of both venues.
package marketstate

import (
	"sync"

	"github.com/chainfeed/ingestd/internal/depth"
)

// Order is a GD per-user resting order, keyed by uid at the call site.
type Order struct {
	UID        uint64
	PriceLots  uint64
	AmountLots uint64
}

// Balance is a GD per-user claimable balance.
type Balance struct {
	Lamports float64
	Lots     float64
}

// Market is one market's mutable runtime state. It is never accessed from
// more than one goroutine at a time: the subscription controller processes
// one account update to completion before starting the next.
type Market struct {
	Slug string

	Bids []depth.Level
	Asks []depth.Level

	PrevUIDBids  map[uint64][]Order
	PrevUIDAsks  map[uint64][]Order
	PrevBalances map[uint64]Balance
}

func newMarket(slug string) *Market {
	return &Market{
		Slug:         slug,
		PrevUIDBids:  make(map[uint64][]Order),
		PrevUIDAsks:  make(map[uint64][]Order),
		PrevBalances: make(map[uint64]Balance),
	}
}

// Store indexes every registered market's state by slug and holds the
// single per-process OB fill-dedup set (per-run, mutated only by the OB
// parser).
type Store struct {
	mu       sync.RWMutex
	markets  map[string]*Market
	filledOB map[[2]uint64]struct{}
}

// NewStore builds an empty state store.
func NewStore() *Store {
	return &Store{
		markets:  make(map[string]*Market),
		filledOB: make(map[[2]uint64]struct{}),
	}
}

// Register creates state for a market slug if it does not already exist,
// and returns it. Called once per market at startup.
func (s *Store) Register(slug string) *Market {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.markets[slug]; ok {
		return m
	}
	m := newMarket(slug)
	s.markets[slug] = m
	return m
}

// Get returns the state for slug, or nil if it was never registered.
func (s *Store) Get(slug string) *Market {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markets[slug]
}

// AlreadyFilled reports whether orderID has already produced an OB trade in
// this run, and if not, marks it as filled. Atomic test-and-set: the OB
// parser is the only caller and calls it from its single-threaded loop, but
// the set is exposed here as the sole owner to keep the invariant in one
// place.
func (s *Store) AlreadyFilled(orderID [2]uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.filledOB[orderID]; ok {
		return true
	}
	s.filledOB[orderID] = struct{}{}
	return false
}
