// Package engine implements the AuctionEngine (spec.md C5): the
// per-auction state machine driving create/start/placeBid/closeRound. Its
// concurrency shape is grounded on the locking discipline in
// ellavondegurechaff-gohye's auction.Manager — a sync.Map keyed by auction
// ID standing in for the teacher's per-row "FOR UPDATE" transaction lock,
// since the Store here has no native row locking of its own.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/clock"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/errs"
	"github.com/cloudx-io/auctionhouse/ledger"
	"github.com/cloudx-io/auctionhouse/store"
)

// DefaultAntiSnipingWindow is used when a caller omits antiSnipingWindow at
// creation time (spec.md §6 API surface table: "default 10").
const DefaultAntiSnipingWindow = 10 * time.Second

// MinRoundDuration is the floor spec.md §6 validation rules impose on
// roundDuration.
const MinRoundDuration = 10 * time.Second

// CreateAuctionInput is the createAuction request shape (spec.md §6).
type CreateAuctionInput struct {
	Title             string
	Description       string
	TotalItems        int
	ItemsPerRound     int
	WinnersPerRound   []int
	RoundDuration     time.Duration
	MinBid            decimal.Decimal
	AntiSnipingWindow *time.Duration
}

// AuctionEngine is the state machine described in spec.md §4. It holds no
// aggregate state itself — Store is authoritative — but owns the
// per-auction critical section (spec.md §5) and the Ledger calls that
// settlement crosses into.
type AuctionEngine struct {
	store  store.Repository
	ledger *ledger.Ledger
	clock  clock.Clock

	minRoundDuration         time.Duration
	defaultAntiSnipingWindow time.Duration

	locks sync.Map // auction ID -> *sync.Mutex
}

// Option configures an AuctionEngine at construction time, letting a caller
// override the config-package-sourced defaults (SPEC_FULL.md §2
// "Configuration") without changing every existing New(s, l, c) call site.
type Option func(*AuctionEngine)

// WithMinRoundDuration overrides the roundDuration floor createAuction
// enforces (spec.md §6 validation rules), normally sourced from
// config.Config.MinRoundDuration.
func WithMinRoundDuration(d time.Duration) Option {
	return func(e *AuctionEngine) { e.minRoundDuration = d }
}

// WithDefaultAntiSnipingWindow overrides the antiSnipingWindow used when a
// caller omits one at creation time, normally sourced from
// config.Config.DefaultAntiSnipingWindow.
func WithDefaultAntiSnipingWindow(d time.Duration) Option {
	return func(e *AuctionEngine) { e.defaultAntiSnipingWindow = d }
}

// New wires an AuctionEngine against its three collaborators, defaulting
// the config-sourced floors to their package constants unless overridden
// by an Option.
func New(s store.Repository, l *ledger.Ledger, c clock.Clock, opts ...Option) *AuctionEngine {
	e := &AuctionEngine{
		store:                    s,
		ledger:                   l,
		clock:                    c,
		minRoundDuration:         MinRoundDuration,
		defaultAntiSnipingWindow: DefaultAntiSnipingWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *AuctionEngine) lockFor(auctionID string) *sync.Mutex {
	v, _ := e.locks.LoadOrStore(auctionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// CreateAuction validates the input and persists a new draft auction.
func (e *AuctionEngine) CreateAuction(ctx context.Context, in CreateAuctionInput) (*core.Auction, error) {
	if in.TotalItems < 1 {
		return nil, errs.BadRequest("totalItems must be >= 1")
	}
	if in.RoundDuration < e.minRoundDuration {
		return nil, errs.BadRequest(fmt.Sprintf("roundDuration must be >= %s", e.minRoundDuration))
	}
	if in.MinBid.IsNegative() {
		return nil, errs.BadRequest("minBid must be >= 0")
	}

	winnersPerRound := in.WinnersPerRound
	if len(winnersPerRound) == 0 {
		if in.ItemsPerRound < 1 {
			return nil, errs.BadRequest("itemsPerRound must be >= 1 when winnersPerRound is omitted")
		}
		winnersPerRound = core.NormalizeWinnersPerRound(in.TotalItems, in.ItemsPerRound)
	}

	sum := 0
	for _, w := range winnersPerRound {
		if w <= 0 {
			return nil, errs.BadRequest("every winnersPerRound element must be > 0")
		}
		sum += w
	}
	if sum != in.TotalItems {
		return nil, errs.BadRequest("sum(winnersPerRound) must equal totalItems")
	}

	antiSnipe := e.defaultAntiSnipingWindow
	if in.AntiSnipingWindow != nil {
		if *in.AntiSnipingWindow < 0 {
			return nil, errs.BadRequest("antiSnipingWindow must be >= 0")
		}
		antiSnipe = *in.AntiSnipingWindow
	}

	a := &core.Auction{
		ID:                core.NewID(),
		Title:             in.Title,
		Description:       in.Description,
		TotalItems:        in.TotalItems,
		WinnersPerRound:   winnersPerRound,
		RoundDuration:     in.RoundDuration,
		MinBid:            in.MinBid.Round(core.MonetaryPrecision),
		AntiSnipingWindow: antiSnipe,
		Status:            core.AuctionDraft,
		CreatedAt:         e.clock.Now(),
	}

	if err := e.store.SaveAuction(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// StartAuction opens round 1 of a draft auction (spec.md §4.4).
func (e *AuctionEngine) StartAuction(ctx context.Context, auctionID string) (*core.Auction, error) {
	mu := e.lockFor(auctionID)
	mu.Lock()
	defer mu.Unlock()

	a, err := e.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != core.AuctionDraft {
		return nil, errs.IllegalState("auction is not in draft status")
	}

	now := e.clock.Now()
	a.Rounds = append(a.Rounds, core.Round{
		RoundNumber:  1,
		StartTime:    now,
		EndTime:      now.Add(a.RoundDuration),
		Status:       core.RoundActive,
		WinningSlots: a.WinnersPerRound[0],
	})
	a.Status = core.AuctionActive
	a.CurrentRound = 1
	a.StartedAt = &now

	if err := e.store.SaveAuction(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// PlaceBid admits a bid into the auction's current round (spec.md §4.2).
func (e *AuctionEngine) PlaceBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal) (*core.Bid, error) {
	mu := e.lockFor(auctionID)
	mu.Lock()
	defer mu.Unlock()

	a, err := e.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != core.AuctionActive {
		return nil, errs.IllegalState("auction is not active")
	}
	round := a.ActiveRound()
	if round == nil {
		return nil, errs.IllegalState("auction has no active round")
	}

	amount = amount.Round(core.MonetaryPrecision)
	if !core.MeetsMinBid(amount, a.MinBid) {
		return nil, errs.BadRequest("bid amount is below minBid")
	}

	now := e.clock.Now()
	if !now.Before(round.EndTime) {
		return nil, errs.RoundEnded(auctionID, round.RoundNumber)
	}

	if _, err := e.ledger.GetUser(userID); err != nil {
		return nil, err
	}

	bid := core.Bid{
		ID:          core.NewID(),
		UserID:      userID,
		Amount:      amount,
		Timestamp:   now,
		RoundNumber: round.RoundNumber,
	}

	// Step 1: debit precedes aggregate mutation. If this fails, no Bid is
	// ever recorded (spec.md §4.2 step 1, §7 "Propagation").
	if _, err := e.ledger.Adjust(userID, amount.Neg()); err != nil {
		return nil, err
	}
	e.ledger.Journal(ledger.Transaction{
		UserID:      userID,
		AuctionID:   auctionID,
		Type:        ledger.TxBid,
		Amount:      amount.Neg(),
		RoundNumber: round.RoundNumber,
		BidID:       bid.ID,
		Description: "bid placed",
	})

	// Step 2: append the bid, bump the round's counter.
	a.Bids = append(a.Bids, bid)
	for i := range a.Rounds {
		if a.Rounds[i].RoundNumber == round.RoundNumber {
			a.Rounds[i].TotalBids++
			round = &a.Rounds[i]
			break
		}
	}

	// Step 3: anti-sniping extension.
	timeUntilEnd := round.EndTime.Sub(now)
	if timeUntilEnd <= a.AntiSnipingWindow {
		board := core.Rank(a.BidsInRound(round.RoundNumber))
		if pos := board.PositionOf(userID); pos >= 0 && pos < round.WinningSlots {
			extensionCap := round.StartTime.Add(2 * a.RoundDuration)
			extended := now.Add(a.AntiSnipingWindow)
			if extended.After(extensionCap) {
				extended = extensionCap
			}
			if extended.After(round.EndTime) {
				round.EndTime = extended
			}
		}
	}

	// Step 4: persist. On failure, credit the debit back — the
	// compensating-write discipline spec.md §9 calls for when the Store
	// and Ledger can't share one transaction.
	if err := e.store.SaveAuction(ctx, a); err != nil {
		if _, refundErr := e.ledger.Adjust(userID, amount); refundErr != nil {
			log.Printf("ERROR: failed to compensate debit for user %q after failed persist: %v", userID, refundErr)
		}
		return nil, err
	}

	return &bid, nil
}

// CloseRound closes the auction's current round (spec.md §4.3), settling
// winners, refunds, and carry-forwards, then either opens the next round
// or finalizes the auction.
func (e *AuctionEngine) CloseRound(ctx context.Context, auctionID string) (*core.Auction, error) {
	mu := e.lockFor(auctionID)
	mu.Lock()
	defer mu.Unlock()

	a, err := e.store.FindByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.Status != core.AuctionActive {
		return nil, errs.IllegalState("auction is not active")
	}
	round := a.ActiveRound()
	if round == nil {
		return nil, errs.IllegalState("auction has no active round")
	}

	now := e.clock.Now()
	if now.Before(round.EndTime) {
		return nil, errs.IllegalState("round not ended")
	}

	roundBids := a.BidsInRound(round.RoundNumber)
	settlement := core.SettleRound(roundBids, round.WinningSlots)

	for _, b := range settlement.RefundNow {
		if _, err := e.ledger.Adjust(b.UserID, b.Amount); err != nil {
			log.Printf("ERROR: failed to refund non-winning bid %q for user %q: %v", b.ID, b.UserID, err)
			continue
		}
		e.ledger.Journal(ledger.Transaction{
			UserID:      b.UserID,
			AuctionID:   auctionID,
			Type:        ledger.TxRefund,
			Amount:      b.Amount,
			RoundNumber: round.RoundNumber,
			BidID:       b.ID,
			Description: "refund: outbid within winning round",
		})
	}

	for i := range a.Rounds {
		if a.Rounds[i].RoundNumber == round.RoundNumber {
			a.Rounds[i].Status = core.RoundCompleted
			a.Rounds[i].Winners = settlement.Winners
			round = &a.Rounds[i]
			break
		}
	}

	for _, w := range settlement.Winners {
		e.ledger.Journal(ledger.Transaction{
			UserID:      w.UserID,
			AuctionID:   auctionID,
			Type:        ledger.TxWin,
			Amount:      w.BidAmount.Neg(),
			RoundNumber: round.RoundNumber,
			Description: "winning bid committed",
		})
	}

	producedSoFar := a.TotalWinnersSoFar()
	if producedSoFar < a.TotalItems && round.RoundNumber < len(a.WinnersPerRound) {
		nextNumber := round.RoundNumber + 1
		a.Rounds = append(a.Rounds, core.Round{
			RoundNumber:  nextNumber,
			StartTime:    now,
			EndTime:      now.Add(a.RoundDuration),
			Status:       core.RoundActive,
			WinningSlots: a.WinnersPerRound[nextNumber-1],
		})
		a.CurrentRound = nextNumber

		for _, b := range settlement.CarryForward {
			a.Bids = append(a.Bids, core.Bid{
				ID:          core.NewID(),
				UserID:      b.UserID,
				Amount:      b.Amount,
				Timestamp:   b.Timestamp,
				RoundNumber: nextNumber,
			})
		}
		a.Rounds[len(a.Rounds)-1].TotalBids = len(settlement.CarryForward)
	} else {
		a.Status = core.AuctionCompleted
		a.CompletedAt = &now
		e.refundNeverWinners(a)
	}

	if err := e.store.SaveAuction(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// refundNeverWinners credits back the escrowed money of every user who never
// appeared in any round's winners list (spec.md §4.3 step 6, §4.5 final
// row). Called only at finalization, when the round just closed is the last
// one: every bid such a user placed has been carried into that round, so
// only that round's bids are summed and each escrowed amount is refunded once.
func (e *AuctionEngine) refundNeverWinners(a *core.Auction) {
	everWon := make(map[string]bool)
	for _, r := range a.Rounds {
		for _, w := range r.Winners {
			everWon[w.UserID] = true
		}
	}

	finalRound := a.Rounds[len(a.Rounds)-1].RoundNumber
	owed := make(map[string]decimal.Decimal)
	for _, b := range a.Bids {
		if everWon[b.UserID] || b.RoundNumber != finalRound {
			continue
		}
		owed[b.UserID] = owed[b.UserID].Add(b.Amount)
	}

	for userID, amount := range owed {
		if amount.IsZero() {
			continue
		}
		if _, err := e.ledger.Adjust(userID, amount); err != nil {
			log.Printf("ERROR: failed to refund never-winning user %q at finalization: %v", userID, err)
			continue
		}
		e.ledger.Journal(ledger.Transaction{
			UserID:      userID,
			AuctionID:   a.ID,
			Type:        ledger.TxRefund,
			Amount:      amount,
			Description: "refund: auction finalized without a win",
		})
	}
}
