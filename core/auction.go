package core

// RoundSettlement is the result of closing one round: who won, which bids
// get refunded immediately, and which bids carry forward into the next
// round. This is a pure function of one round's bids plus its winning-slot
// count — it performs no I/O and mutates nothing.
type RoundSettlement struct {
	// Winners is the top-K leaderboard cut, K = winningSlots.
	Winners []Winner

	// RefundNow are bids to credit back immediately: a winner's non-winning
	// bids in this round (spec.md §4.5 "Winner, other bids same round").
	RefundNow []Bid

	// CarryForward are the losing bidders' bids in this round — every one
	// of them, not just their best — that must reappear as fresh Bid
	// records in the next round with their original timestamp
	// (spec.md §4.3 step 5, §4.5 "Non-winner, any bid").
	CarryForward []Bid
}

// SettleRound closes a round given its full bag of bids and its winning-slot
// count. Processing flow: rank → take top-K as winners → classify every
// remaining bid as an immediate refund (winner's other bids) or a
// carry-forward (non-winner's bids).
func SettleRound(roundBids []Bid, winningSlots int) *RoundSettlement {
	leaderboard := Rank(roundBids)
	top := leaderboard.Top(winningSlots)

	winners := make([]Winner, len(top))
	winningBidID := make(map[string]string, len(top)) // userID -> the specific Bid.ID that won
	for i, b := range top {
		winners[i] = Winner{UserID: b.UserID, BidAmount: b.Amount, Position: i + 1}
		winningBidID[b.UserID] = b.ID
	}

	settlement := &RoundSettlement{
		Winners:      winners,
		RefundNow:    make([]Bid, 0),
		CarryForward: make([]Bid, 0),
	}

	for _, b := range roundBids {
		winID, isWinner := winningBidID[b.UserID]
		switch {
		case isWinner && b.ID == winID:
			// the winning bid itself: price paid, no refund, no carry
		case isWinner:
			settlement.RefundNow = append(settlement.RefundNow, b)
		default:
			settlement.CarryForward = append(settlement.CarryForward, b)
		}
	}

	return settlement
}
