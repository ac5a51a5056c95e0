// Package store durably holds Auction aggregates (spec.md C3). The
// interface shape follows the Repository pattern in
// floroz-gavel's items.Repository: narrow, context-aware, one method per
// access pattern rather than a generic CRUD surface. The only
// implementation here is an in-memory one; snapshot encoding is via
// fxamacker/cbor so an aggregate can be durably written to a byte sink
// without reflecting the encoding choice into the interface.
package store

import (
	"context"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/errs"
)

// Repository is the Store contract AuctionEngine and RoundScheduler depend
// on (spec.md §6 "Store contract"). SaveAuction is all-or-nothing on the
// whole aggregate and enforces optimistic concurrency via Auction.Version.
type Repository interface {
	SaveAuction(ctx context.Context, a *core.Auction) error
	FindByID(ctx context.Context, id string) (*core.Auction, error)
	FindActive(ctx context.Context) ([]*core.Auction, error)
	FindAll(ctx context.Context, limit int) ([]*core.Auction, error)
}

// MemoryStore is an in-process Repository backed by a map, guarded by a
// single RWMutex. Good enough for the engine's tests and for the demo
// binary; a production Store would swap this for a transactional database
// behind the same interface.
type MemoryStore struct {
	mu        sync.RWMutex
	auctions  map[string]*core.Auction
	createdAt map[string]int // insertion sequence, for stable FindAll ordering
	seq       int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions:  make(map[string]*core.Auction),
		createdAt: make(map[string]int),
	}
}

// SaveAuction persists a into the store. If a record already exists for
// a.ID, the caller's Version must match the stored Version or the save is
// rejected with ErrConflict — this is the optimistic-concurrency check
// spec.md §9 calls for when a transactional store isn't available. On
// success the stored copy's Version is incremented and the caller's
// in-memory aggregate is bumped to match.
func (s *MemoryStore) SaveAuction(ctx context.Context, a *core.Auction) error {
	if a == nil || a.ID == "" {
		return errs.BadRequest("auction id is required")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.auctions[a.ID]
	if ok && existing.Version != a.Version {
		return errs.Conflict("auction version mismatch")
	}

	cp := deepCopy(a)
	cp.Version = a.Version + 1
	s.auctions[a.ID] = cp
	a.Version = cp.Version

	if !ok {
		s.seq++
		s.createdAt[a.ID] = s.seq
	}
	return nil
}

// FindByID returns a deep copy of the stored aggregate for id.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*core.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, errs.NotFound("auction", id)
	}
	return deepCopy(a), nil
}

// FindActive returns every auction whose status is active and whose
// current round is itself active — the set RoundScheduler polls each tick.
func (s *MemoryStore) FindActive(ctx context.Context) ([]*core.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Auction, 0)
	for _, a := range s.auctions {
		if a.Status != core.AuctionActive {
			continue
		}
		if r := a.ActiveRound(); r != nil {
			out = append(out, deepCopy(a))
		}
	}
	return out, nil
}

// FindAll returns up to limit auctions in insertion order. limit <= 0
// means unbounded.
func (s *MemoryStore) FindAll(ctx context.Context, limit int) ([]*core.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.auctions))
	for id := range s.auctions {
		ids = append(ids, id)
	}
	sortByInsertion(ids, s.createdAt)

	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]*core.Auction, len(ids))
	for i, id := range ids {
		out[i] = deepCopy(s.auctions[id])
	}
	return out, nil
}

// Snapshot serializes every stored auction to CBOR, the durable wire
// format the teacher used for attestation payloads, repurposed here for
// aggregate persistence.
func (s *MemoryStore) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*core.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		all = append(all, a)
	}
	return cbor.Marshal(all)
}

// LoadSnapshot replaces the store's contents with the auctions encoded in
// data (as produced by Snapshot).
func (s *MemoryStore) LoadSnapshot(data []byte) error {
	var all []*core.Auction
	if err := cbor.Unmarshal(data, &all); err != nil {
		return errs.Internal(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.auctions = make(map[string]*core.Auction, len(all))
	s.createdAt = make(map[string]int, len(all))
	s.seq = 0
	for _, a := range all {
		s.seq++
		s.auctions[a.ID] = a
		s.createdAt[a.ID] = s.seq
	}
	return nil
}

func deepCopy(a *core.Auction) *core.Auction {
	cp := *a
	cp.WinnersPerRound = append([]int(nil), a.WinnersPerRound...)
	cp.Rounds = make([]core.Round, len(a.Rounds))
	for i, r := range a.Rounds {
		rcp := r
		rcp.Winners = append([]core.Winner(nil), r.Winners...)
		cp.Rounds[i] = rcp
	}
	cp.Bids = append([]core.Bid(nil), a.Bids...)
	return &cp
}

func sortByInsertion(ids []string, order map[string]int) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && order[ids[j-1]] > order[ids[j]]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
