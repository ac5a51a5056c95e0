// Package core holds the pure, stateless auction primitives: the data
// shapes shared by every layer, the leaderboard ranking function, and the
// bid-admission/settlement math. Nothing in this package talks to a clock,
// a store, or a ledger.
package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonetaryPrecision is the number of fractional digits money is rounded to
// before comparison. Spec money is "a real number with two fractional
// digits" (spec.md §9 open question 4); decimal.Decimal carries it exactly.
const MonetaryPrecision int32 = 2

// AuctionStatus is the lifecycle state of an Auction aggregate.
type AuctionStatus string

const (
	AuctionDraft     AuctionStatus = "draft"
	AuctionActive    AuctionStatus = "active"
	AuctionCompleted AuctionStatus = "completed"
	AuctionCancelled AuctionStatus = "cancelled"
)

// RoundStatus is the lifecycle state of a single Round.
type RoundStatus string

const (
	RoundPending   RoundStatus = "pending"
	RoundActive    RoundStatus = "active"
	RoundCompleted RoundStatus = "completed"
)

// Winner is one awarded slot in a completed round.
type Winner struct {
	UserID    string          `json:"user_id"`
	BidAmount decimal.Decimal `json:"bid_amount"`
	Position  int             `json:"position"` // 1-based
}

// Round is a time-bounded bidding window with a fixed number of winning
// slots, belonging to exactly one Auction.
type Round struct {
	RoundNumber  int         `json:"round_number"` // 1-based
	StartTime    time.Time   `json:"start_time"`
	EndTime      time.Time   `json:"end_time"`
	Status       RoundStatus `json:"status"`
	WinningSlots int         `json:"winning_slots"`
	Winners      []Winner    `json:"winners"`
	TotalBids    int         `json:"total_bids"`
}

// Bid is an immutable admission record. A carried-forward bid is a new Bid
// record in the next round with the same amount and the original timestamp.
type Bid struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	RoundNumber int             `json:"round_number"`
}

// Auction is the single unit of atomic update: itself, its Rounds, and its
// Bids form one aggregate.
type Auction struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	TotalItems        int             `json:"total_items"`
	WinnersPerRound   []int           `json:"winners_per_round"`
	RoundDuration     time.Duration   `json:"round_duration"`
	MinBid            decimal.Decimal `json:"min_bid"`
	AntiSnipingWindow time.Duration   `json:"anti_snipe_window"`
	Status            AuctionStatus   `json:"status"`
	CurrentRound      int             `json:"current_round"` // 1-based, meaningful only when Status == active
	Rounds            []Round         `json:"rounds"`
	Bids              []Bid           `json:"bids"`
	CreatedAt         time.Time       `json:"created_at"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	Version           int64           `json:"version"` // optimistic concurrency token
}

// NormalizeWinnersPerRound expands a single itemsPerRound into the
// winnersPerRound sequence spec.md §3 defines:
// [itemsPerRound, itemsPerRound, ..., remainder], length ceil(totalItems/itemsPerRound).
func NormalizeWinnersPerRound(totalItems, itemsPerRound int) []int {
	if itemsPerRound <= 0 || totalItems <= 0 {
		return nil
	}
	n := (totalItems + itemsPerRound - 1) / itemsPerRound
	out := make([]int, 0, n)
	remaining := totalItems
	for i := 0; i < n; i++ {
		take := itemsPerRound
		if take > remaining {
			take = remaining
		}
		out = append(out, take)
		remaining -= take
	}
	return out
}

// NewID returns a fresh opaque identifier suitable for any aggregate or
// sub-record.
func NewID() string {
	return uuid.NewString()
}

// ActiveRound returns the currently active round, or nil.
func (a *Auction) ActiveRound() *Round {
	for i := range a.Rounds {
		if a.Rounds[i].Status == RoundActive {
			return &a.Rounds[i]
		}
	}
	return nil
}

// BidsInRound returns every bid (original or carried-forward) recorded
// against the given round number.
func (a *Auction) BidsInRound(roundNumber int) []Bid {
	out := make([]Bid, 0)
	for _, b := range a.Bids {
		if b.RoundNumber == roundNumber {
			out = append(out, b)
		}
	}
	return out
}

// TotalWinnersSoFar sums the number of awarded slots across all rounds.
func (a *Auction) TotalWinnersSoFar() int {
	n := 0
	for _, r := range a.Rounds {
		n += len(r.Winners)
	}
	return n
}
