package core

import "sort"

// Leaderboard is the ordered per-user best-bid ranking produced by Rank.
// Entry i has rank i+1.
type Leaderboard struct {
	Entries []Bid `json:"entries"`
}

// Len returns the number of distinct bidders in the leaderboard.
func (l *Leaderboard) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// Top returns the first k entries (or fewer, if the leaderboard is shorter).
func (l *Leaderboard) Top(k int) []Bid {
	if l == nil || k <= 0 {
		return nil
	}
	if k > len(l.Entries) {
		k = len(l.Entries)
	}
	out := make([]Bid, k)
	copy(out, l.Entries[:k])
	return out
}

// PositionOf returns the 0-based rank of userID in the leaderboard, or -1
// if the user has no bid in it.
func (l *Leaderboard) PositionOf(userID string) int {
	if l == nil {
		return -1
	}
	for i, e := range l.Entries {
		if e.UserID == userID {
			return i
		}
	}
	return -1
}

// Rank reduces a bag of bids for a single round to one entry per user — the
// user's largest bid, with the earliest timestamp breaking amount ties —
// then sorts descending by amount, ascending by timestamp, and ascending by
// user ID when amount and timestamp are both equal. Identical input
// produces bit-identical output: two users never tie in the result.
func Rank(bids []Bid) *Leaderboard {
	if len(bids) == 0 {
		return &Leaderboard{Entries: []Bid{}}
	}

	best := make(map[string]Bid, len(bids))
	order := make([]string, 0, len(bids))
	seen := make(map[string]bool, len(bids))

	for _, b := range bids {
		if !seen[b.UserID] {
			order = append(order, b.UserID)
			seen[b.UserID] = true
			best[b.UserID] = b
			continue
		}
		existing := best[b.UserID]
		if b.Amount.GreaterThan(existing.Amount) ||
			(b.Amount.Equal(existing.Amount) && b.Timestamp.Before(existing.Timestamp)) {
			best[b.UserID] = b
		}
	}

	entries := make([]Bid, len(order))
	for i, userID := range order {
		entries[i] = best[userID]
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Amount.Equal(entries[j].Amount) {
			return entries[i].Amount.GreaterThan(entries[j].Amount)
		}
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].UserID < entries[j].UserID
	})

	return &Leaderboard{Entries: entries}
}
