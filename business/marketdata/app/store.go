package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fd1az/arbitrage-bot/business/marketdata/domain"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
)

// BookStore holds the latest BookSnapshot per (venue, pair), published
// atomically by Connectors and read by the Depth/VWAP helpers and the Cross
// and Tri engines. Reads never block writes and vice versa: each entry is an
// atomic.Pointer swapped wholesale on every update, so a reader always sees
// either the old or the new snapshot, never a partial one.
type BookStore struct {
	maxStaleness time.Duration

	mu      sync.RWMutex
	entries map[domain.MarketKey]*atomic.Pointer[domain.BookSnapshot]
}

// NewBookStore creates a BookStore that treats any snapshot older than
// maxStaleness as absent.
func NewBookStore(maxStaleness time.Duration) *BookStore {
	return &BookStore{
		maxStaleness: maxStaleness,
		entries:      make(map[domain.MarketKey]*atomic.Pointer[domain.BookSnapshot]),
	}
}

func (s *BookStore) slot(key domain.MarketKey) *atomic.Pointer[domain.BookSnapshot] {
	s.mu.RLock()
	p, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.entries[key]; ok {
		return p
	}
	p = &atomic.Pointer[domain.BookSnapshot]{}
	s.entries[key] = p
	return p
}

// Put installs snap as the latest snapshot for its (venue, pair), rejecting
// updates that would move TsLocal backwards (out-of-order delivery from a
// reconnecting Connector) or that are internally crossed (best bid >= best
// ask on both sides present).
func (s *BookStore) Put(snap *domain.BookSnapshot) error {
	if snap == nil {
		return apperror.New(apperror.CodeBookInvalid, apperror.WithContext("nil snapshot"))
	}
	bid, hasBid := snap.BestBid()
	ask, hasAsk := snap.BestAsk()
	if hasBid && hasAsk && bid.Price.GreaterThanOrEqual(ask.Price) {
		return apperror.New(apperror.CodeBookInvalid,
			apperror.WithContext(string(snap.Venue)+" "+snap.Pair.String()+" crossed book"))
	}

	slot := s.slot(snap.Key())
	for {
		old := slot.Load()
		if old != nil && snap.TsLocal.Before(old.TsLocal) {
			return apperror.New(apperror.CodeBookInvalid,
				apperror.WithContext(string(snap.Venue)+" "+snap.Pair.String()+" out-of-order ts_local"))
		}
		if slot.CompareAndSwap(old, snap) {
			return nil
		}
	}
}

// Get returns the current snapshot for (venue, pair), or ErrBookAbsent if
// none exists or the one on file is older than maxStaleness.
func (s *BookStore) Get(venue domain.VenueID, pair domain.Pair, now time.Time) (*domain.BookSnapshot, error) {
	s.mu.RLock()
	slot, ok := s.entries[domain.MarketKey{Venue: venue, Pair: pair}]
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.New(apperror.CodeBookAbsent,
			apperror.WithContext(string(venue)+" "+pair.String()), apperror.WithCause(domain.ErrBookAbsent))
	}
	snap := slot.Load()
	if snap == nil || snap.IsStale(now, s.maxStaleness) {
		return nil, apperror.New(apperror.CodeBookAbsent,
			apperror.WithContext(string(venue)+" "+pair.String()), apperror.WithCause(domain.ErrBookAbsent))
	}
	return snap, nil
}

// PairsOf returns every pair currently tracked for venue, regardless of
// staleness.
func (s *BookStore) PairsOf(venue domain.VenueID) []domain.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Pair, 0)
	for k := range s.entries {
		if k.Venue == venue {
			out = append(out, k.Pair)
		}
	}
	return out
}

// VenuesOf returns every venue currently publishing pair, regardless of
// staleness.
func (s *BookStore) VenuesOf(pair domain.Pair) []domain.VenueID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[domain.VenueID]bool)
	out := make([]domain.VenueID, 0)
	for k := range s.entries {
		if k.Pair == pair && !seen[k.Venue] {
			seen[k.Venue] = true
			out = append(out, k.Venue)
		}
	}
	return out
}

// Sweep reports every (venue, pair) whose latest snapshot is older than
// maxStaleness as of now, for the clock module's staleness sweep to count.
// Nothing is removed.
func (s *BookStore) Sweep(now time.Time) []domain.MarketKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stale := make([]domain.MarketKey, 0)
	for k, slot := range s.entries {
		snap := slot.Load()
		if snap == nil || snap.IsStale(now, s.maxStaleness) {
			stale = append(stale, k)
		}
	}
	return stale
}
