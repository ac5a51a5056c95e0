package query

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/store"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestActiveAuctions_ReturnsOnlyTrulyActive(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	active := &core.Auction{
		ID:              "active",
		TotalItems:      2,
		WinnersPerRound: []int{1, 1},
		Status:          core.AuctionActive,
		CurrentRound:    1,
		Rounds:          []core.Round{{RoundNumber: 1, Status: core.RoundActive, WinningSlots: 1, EndTime: time.Now().Add(time.Hour)}},
	}
	draft := &core.Auction{ID: "draft", Status: core.AuctionDraft}
	require.NoError(t, s.SaveAuction(ctx, active))
	require.NoError(t, s.SaveAuction(ctx, draft))

	q := New(s)
	got, err := q.ActiveAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "active", got[0].ID)
}

func TestActiveAuctions_HidesObviouslyFinished(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	// Round 1 is still nominally "active" (so FindActive would surface it),
	// but its winners have already been recorded — a stale state the
	// scheduler hasn't reconciled yet, which self-healing should catch.
	finished := &core.Auction{
		ID:              "stale",
		TotalItems:      1,
		WinnersPerRound: []int{1},
		Status:          core.AuctionActive,
		CurrentRound:    1,
		Rounds: []core.Round{
			{RoundNumber: 1, Status: core.RoundActive, WinningSlots: 1, EndTime: time.Now().Add(time.Hour), Winners: []core.Winner{{UserID: "u1", BidAmount: d("5"), Position: 1}}},
		},
	}
	require.NoError(t, s.SaveAuction(ctx, finished))

	q := New(s)
	got, err := q.ActiveAuctions(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLeaderboard_MarksTopWinningSlots(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	a := &core.Auction{
		ID:              "lb",
		TotalItems:      2,
		WinnersPerRound: []int{2},
		Status:          core.AuctionActive,
		CurrentRound:    1,
		Rounds:          []core.Round{{RoundNumber: 1, Status: core.RoundActive, WinningSlots: 2}},
		Bids: []core.Bid{
			{ID: "b1", UserID: "u1", Amount: d("5"), Timestamp: now, RoundNumber: 1},
			{ID: "b2", UserID: "u2", Amount: d("10"), Timestamp: now, RoundNumber: 1},
			{ID: "b3", UserID: "u3", Amount: d("7"), Timestamp: now, RoundNumber: 1},
		},
	}
	require.NoError(t, s.SaveAuction(ctx, a))

	q := New(s)
	entries, err := q.Leaderboard(ctx, "lb", 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "u2", entries[0].UserID)
	assert.True(t, entries[0].IsWinning)
	assert.Equal(t, "u3", entries[1].UserID)
	assert.True(t, entries[1].IsWinning)
	assert.Equal(t, "u1", entries[2].UserID)
	assert.False(t, entries[2].IsWinning)
}

func TestLeaderboard_UnknownRoundIsNotFound(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	a := &core.Auction{ID: "no-round", Status: core.AuctionActive}
	require.NoError(t, s.SaveAuction(ctx, a))

	q := New(s)
	_, err := q.Leaderboard(ctx, "no-round", 1)
	require.Error(t, err)
}

func TestUserBids_IncludesCarriedForwardDuplicates(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	orig := time.Now().Add(-time.Minute)
	a := &core.Auction{
		ID: "carry",
		Bids: []core.Bid{
			{ID: "b1", UserID: "u1", Amount: d("3"), Timestamp: orig, RoundNumber: 1},
			{ID: "b2", UserID: "u1", Amount: d("3"), Timestamp: orig, RoundNumber: 2},
			{ID: "b3", UserID: "u2", Amount: d("9"), Timestamp: orig, RoundNumber: 1},
		},
	}
	require.NoError(t, s.SaveAuction(ctx, a))

	q := New(s)
	bids, err := q.UserBids(ctx, "carry", "u1")
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, 1, bids[0].RoundNumber)
	assert.Equal(t, 2, bids[1].RoundNumber)
	assert.True(t, bids[0].Timestamp.Equal(orig))
	assert.True(t, bids[1].Timestamp.Equal(orig))
}
