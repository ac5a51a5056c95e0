// Package query implements the read-side Query API (spec.md C7):
// projections over the Store that never observe an aggregate mid-mutation.
// Grounded on Manager.GetActiveAuctions/GetAllActiveAuctions in
// ellavondegurechaff-gohye's auction manager — filter-then-log shape, plus
// a "self-healing" pass that quietly corrects a projection it notices is
// stale rather than surfacing an inconsistency to the caller.
package query

import (
	"context"
	"log"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/errs"
	"github.com/cloudx-io/auctionhouse/store"
)

// LeaderboardEntry is one row of a round's leaderboard, with the top
// winningSlots entries flagged (spec.md §4.7 "marked").
type LeaderboardEntry struct {
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp string          `json:"timestamp"`
	IsWinning bool            `json:"is_winning"`
}

// API is the read-only query surface over a Store. It holds no state of its
// own beyond the Store it reads through.
type API struct {
	store store.Repository
}

// New wires a query API against a Store.
func New(s store.Repository) *API {
	return &API{store: s}
}

// ActiveAuctions returns every auction whose status is active and whose
// current round is itself active. Before returning, it opportunistically
// leaves obviously-finished auctions out of the result, logging each one —
// a self-healing projection for auctions the scheduler hasn't gotten to yet
// (spec.md §4.7). It does not change their stored status; the transition to
// completed happens only through AuctionEngine.CloseRound.
func (a *API) ActiveAuctions(ctx context.Context) ([]*core.Auction, error) {
	all, err := a.store.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Auction, 0, len(all))
	for _, auc := range all {
		if isObviouslyFinished(auc) {
			log.Printf("INFO: activeAuctions: auction %q has already awarded all of its items but has not been closed yet", auc.ID)
			continue
		}
		out = append(out, auc)
	}
	return out, nil
}

// isObviouslyFinished reports whether an auction that is still nominally
// active has in fact already produced all of its items — the "all items
// awarded" half of the condition spec.md §4.7 calls "obviously-finished".
// FindActive only ever returns auctions with Status == active and a round
// whose own Status == active (store/store.go), and AuctionEngine.CloseRound
// always flips Status to completed in the same write that clears the last
// active round (engine/engine.go), so the "round exhaustion with no active
// round" half of that condition can never describe an auction reaching this
// function through the normal engine path; it would only matter for an
// aggregate written by something other than the engine (e.g. a store-layer
// migration or repair script), which is out of scope here.
func isObviouslyFinished(a *core.Auction) bool {
	return a.TotalWinnersSoFar() >= a.TotalItems
}

// Leaderboard applies the Ranker to one round's bids and returns the
// ordered list with the first winningSlots entries marked as winning
// (spec.md §4.7 "leaderboard").
func (a *API) Leaderboard(ctx context.Context, auctionID string, roundNumber int) ([]LeaderboardEntry, error) {
	auc, err := a.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	var winningSlots int
	found := false
	for _, r := range auc.Rounds {
		if r.RoundNumber == roundNumber {
			winningSlots = r.WinningSlots
			found = true
			break
		}
	}
	if !found {
		return nil, errs.NotFound("round", auctionIDRound(auctionID, roundNumber))
	}

	board := core.Rank(auc.BidsInRound(roundNumber))
	entries := make([]LeaderboardEntry, len(board.Entries))
	for i, b := range board.Entries {
		entries[i] = LeaderboardEntry{
			UserID:    b.UserID,
			Amount:    b.Amount,
			Timestamp: b.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			IsWinning: i < winningSlots,
		}
	}
	return entries, nil
}

// UserBids returns every raw Bid record (including carried-forward
// duplicates, with their original timestamps) belonging to userID across
// the whole auction (spec.md §4.7 "userBids").
func (a *API) UserBids(ctx context.Context, auctionID, userID string) ([]core.Bid, error) {
	auc, err := a.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	out := make([]core.Bid, 0)
	for _, b := range auc.Bids {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func auctionIDRound(auctionID string, roundNumber int) string {
	return auctionID + "#" + strconv.Itoa(roundNumber)
}
