package ledger

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/clock"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/errs"
)

// DefaultInitialBalance is the demo starting balance, per spec.md §6 ("a
// demo constant, e.g. 1000; configurable"). New does not read it: a Ledger
// seeds new users with the initialBalance passed to New.
var DefaultInitialBalance = decimal.NewFromInt(1000)

// Ledger is an in-process balance store + append-only transaction journal.
// Adjust is atomic: the balance mutation and the invariant check happen
// under the ledger's single lock, shared by all users, mirroring the locked
// debit-then-credit sections in auction_manager.go's PlaceBid.
type Ledger struct {
	clock clock.Clock

	mu      sync.RWMutex
	users   map[string]*User
	history map[string][]Transaction // newest-first per user

	initialBalance decimal.Decimal
}

// New returns an empty Ledger seeding new users with initialBalance.
func New(c clock.Clock, initialBalance decimal.Decimal) *Ledger {
	return &Ledger{
		clock:          c,
		users:          make(map[string]*User),
		history:        make(map[string][]Transaction),
		initialBalance: initialBalance,
	}
}

// GetUser returns the user, or ErrNotFound if they don't exist yet.
func (l *Ledger) GetUser(userID string) (*User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	u, ok := l.users[userID]
	if !ok {
		return nil, errs.NotFound("user", userID)
	}
	cp := *u
	return &cp, nil
}

// GetOrCreate returns the user, creating them with the ledger's initial
// balance if they don't exist yet.
func (l *Ledger) GetOrCreate(userID, username string) *User {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		u = &User{UserID: userID, Username: username, Balance: l.initialBalance}
		l.users[userID] = u
	} else if username != "" && u.Username == "" {
		u.Username = username
	}
	cp := *u
	return &cp
}

// Adjust atomically applies delta (positive to credit, negative to debit) to
// a user's balance. Debits that would drive the balance negative fail with
// ErrInsufficientBalance and leave the balance untouched.
func (l *Ledger) Adjust(userID string, delta decimal.Decimal) (*User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		if delta.IsNegative() {
			return nil, errs.NotFound("user", userID)
		}
		u = &User{UserID: userID, Balance: l.initialBalance}
		l.users[userID] = u
	}

	next := u.Balance.Add(delta)
	if next.IsNegative() {
		return nil, errs.InsufficientBalance(userID)
	}
	u.Balance = next

	cp := *u
	return &cp, nil
}

// Journal appends a Transaction to a user's history. Never reorders: entries
// are always prepended so History returns newest-first without sorting.
func (l *Ledger) Journal(tx Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.ID == "" {
		tx.ID = core.NewID()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = l.clock.Now()
	}
	if tx.Status == "" {
		tx.Status = TxStatusPosted
	}
	l.history[tx.UserID] = append([]Transaction{tx}, l.history[tx.UserID]...)
}

// History returns up to limit transactions for a user, newest first. limit
// <= 0 means unbounded.
func (l *Ledger) History(userID string, limit int) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.history[userID]
	if limit <= 0 || limit >= len(entries) {
		out := make([]Transaction, len(entries))
		copy(out, entries)
		return out
	}
	out := make([]Transaction, limit)
	copy(out, entries[:limit])
	return out
}

// Deposit credits a user's balance with a `deposit` transaction. No
// validation beyond amount > 0 (spec.md §4 SUPPLEMENTED BEHAVIOR).
func (l *Ledger) Deposit(userID string, amount decimal.Decimal) (*User, error) {
	if !amount.IsPositive() {
		return nil, errs.BadRequest("deposit amount must be positive")
	}
	u, err := l.Adjust(userID, amount)
	if err != nil {
		return nil, err
	}
	l.Journal(Transaction{
		UserID:      userID,
		Type:        TxDeposit,
		Amount:      amount,
		Description: "deposit",
		CreatedAt:   l.clock.Now(),
	})
	return u, nil
}
