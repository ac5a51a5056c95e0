// Package ledger implements the per-user balance + append-only transaction
// journal the auction engine settles funds through. It is a separate
// aggregate from the Auction (spec.md §9 "Aggregate granularity"): each
// user's balance is mutated independently, and the engine coordinates the
// two aggregates with a debit-first, persist-second discipline.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger Transaction.
type TransactionType string

const (
	TxBid     TransactionType = "bid"
	TxRefund  TransactionType = "refund"
	TxWin     TransactionType = "win"
	TxDeposit TransactionType = "deposit"
)

// TransactionStatus is the settlement state of a Transaction.
type TransactionStatus string

const (
	TxStatusPosted   TransactionStatus = "posted"
	TxStatusReversed TransactionStatus = "reversed"
)

// Transaction is an immutable, append-only journal entry.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	AuctionID   string            `json:"auction_id,omitempty"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	RoundNumber int               `json:"round_number,omitempty"`
	BidID       string            `json:"bid_id,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// User is a ledger account.
type User struct {
	UserID   string          `json:"user_id"`
	Username string          `json:"username,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
}
