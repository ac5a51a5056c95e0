package core

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func bid(id, userID string, amount float64, ts time.Time) Bid {
	return Bid{ID: id, UserID: userID, Amount: decimal.NewFromFloat(amount), Timestamp: ts}
}

func TestRank_Integration(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bids := []Bid{
		bid("bid_a_001", "a", 2.50, base),
		bid("bid_b_001", "b", 2.25, base),
		bid("bid_c_001", "c", 2.75, base),
	}

	result := Rank(bids)

	check.Equal(t, 3, result.Len())
	check.Equal(t, "c", result.Entries[0].UserID)
	check.Equal(t, "a", result.Entries[1].UserID)
	check.Equal(t, "b", result.Entries[2].UserID)
}

func TestRank_SingleBid(t *testing.T) {
	base := time.Now()
	result := Rank([]Bid{bid("bid1", "a", 2.00, base)})

	check.Equal(t, 1, result.Len())
	check.Equal(t, "a", result.Entries[0].UserID)
}

func TestRank_EmptyBids(t *testing.T) {
	result := Rank([]Bid{})

	check.NotNil(t, result)
	check.Equal(t, 0, result.Len())
}

func TestRank_KeepsBestBidPerUser(t *testing.T) {
	base := time.Now()
	bids := []Bid{
		bid("bid1", "a", 3.00, base),
		bid("bid2", "a", 5.00, base.Add(time.Second)),
		bid("bid3", "b", 4.00, base),
	}

	result := Rank(bids)

	check.Equal(t, 2, result.Len())
	check.Equal(t, "a", result.Entries[0].UserID)
	check.Equal(t, "5", result.Entries[0].Amount.String())
}

func TestRank_TieBrokenByEarliestTimestamp(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bids := []Bid{
		bid("bid1", "a", 5.00, base.Add(2*time.Second)),
		bid("bid2", "b", 5.00, base.Add(1*time.Second)),
		bid("bid3", "c", 1.00, base),
	}

	result := Rank(bids)

	check.Equal(t, 3, result.Len())
	check.Equal(t, "b", result.Entries[0].UserID) // earlier timestamp wins the tie
	check.Equal(t, "a", result.Entries[1].UserID)
	check.Equal(t, "c", result.Entries[2].UserID)
}

func TestRank_Determinism(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bids := []Bid{
		bid("bid1", "a", 5.00, base.Add(2*time.Second)),
		bid("bid2", "b", 5.00, base.Add(1*time.Second)),
		bid("bid3", "c", 1.00, base),
	}

	r1 := Rank(bids)
	r2 := Rank(bids)

	check.Equal(t, r1.Entries, r2.Entries)
}

func TestLeaderboard_TopAndPositionOf(t *testing.T) {
	base := time.Now()
	bids := []Bid{
		bid("bid1", "a", 10, base),
		bid("bid2", "b", 7, base),
		bid("bid3", "c", 3, base),
	}
	lb := Rank(bids)

	top2 := lb.Top(2)
	check.Equal(t, 2, len(top2))
	check.Equal(t, "a", top2[0].UserID)
	check.Equal(t, "b", top2[1].UserID)

	check.Equal(t, 0, lb.PositionOf("a"))
	check.Equal(t, 2, lb.PositionOf("c"))
	check.Equal(t, -1, lb.PositionOf("nobody"))
}
