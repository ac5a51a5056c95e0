// Package scheduler implements the RoundScheduler (spec.md C6): a
// background ticker that finds rounds whose deadline has elapsed and asks
// the AuctionEngine to close them. Cadence and retry-with-backoff are
// grounded on ellavondegurechaff-gohye's Manager.startCleanupTicker /
// cleanupExpiredAuctions, which polls on a ticker and logs-and-continues
// on a per-item failure rather than aborting the whole pass.
package scheduler

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/cloudx-io/auctionhouse/clock"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/errs"
	"github.com/cloudx-io/auctionhouse/store"
)

// TickInterval is the scheduler's polling cadence (spec.md §4.6 "5 s cadence").
const TickInterval = 5 * time.Second

// maxCloseAttempts bounds the retry-with-backoff loop for a single round
// closure within one tick, mirroring Manager.completeAuction's maxRetries.
const maxCloseAttempts = 3

// Closer is the subset of AuctionEngine the scheduler drives. Declared
// narrowly so the scheduler can be tested against a stub.
type Closer interface {
	CloseRound(ctx context.Context, auctionID string) (*core.Auction, error)
}

// RoundScheduler periodically closes rounds whose deadline has elapsed.
// It is the only writer not driven by an external API call (spec.md
// §4.6); all mutation still funnels through AuctionEngine.CloseRound,
// which serializes against concurrent placeBid calls via the per-auction
// critical section.
type RoundScheduler struct {
	store  store.Repository
	closer Closer
	clock  clock.Clock

	interval time.Duration

	mu      sync.Mutex
	ticker  *time.Ticker
	stopCh  chan struct{}
	stopped bool
}

// Option configures a RoundScheduler at construction time, letting a
// caller override the config-package-sourced cadence (SPEC_FULL.md §2
// "Configuration") without changing every existing New(s, closer) call site.
type Option func(*RoundScheduler)

// WithInterval overrides the polling cadence, normally sourced from
// config.Config.SchedulerInterval.
func WithInterval(d time.Duration) Option {
	return func(r *RoundScheduler) { r.interval = d }
}

// New wires a RoundScheduler against a Store (to discover candidates) and a
// Closer (to act on them). It uses the system wall clock, same as every
// other caller of round deadlines outside of tests, and the package's
// default TickInterval unless overridden by an Option.
func New(s store.Repository, closer Closer, opts ...Option) *RoundScheduler {
	r := &RoundScheduler{
		store:    s,
		closer:   closer,
		clock:    clock.System{},
		interval: TickInterval,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the background tick loop. Call Stop to shut it down.
func (r *RoundScheduler) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticker != nil {
		return
	}
	r.ticker = time.NewTicker(r.interval)
	go r.loop()
}

// Stop halts the tick loop. Safe to call more than once.
func (r *RoundScheduler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	close(r.stopCh)
	if r.ticker != nil {
		r.ticker.Stop()
	}
}

func (r *RoundScheduler) loop() {
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.ticker.C:
			r.Tick(context.Background())
		}
	}
}

// Tick runs one polling pass: find every active round whose deadline has
// elapsed and close it, logging and moving on when a single closure fails
// (spec.md §4.6 "Failures are logged and retried on the next tick").
func (r *RoundScheduler) Tick(ctx context.Context) {
	candidates, err := r.store.FindActive(ctx)
	if err != nil {
		log.Printf("ERROR: scheduler failed to list active auctions: %v", err)
		return
	}

	now := r.clock.Now()
	for _, a := range candidates {
		round := a.ActiveRound()
		if round == nil || round.EndTime.After(now) {
			continue
		}
		r.closeWithRetry(ctx, a.ID)
	}
}

func (r *RoundScheduler) closeWithRetry(ctx context.Context, auctionID string) {
	var lastErr error
	for attempt := 0; attempt < maxCloseAttempts; attempt++ {
		_, err := r.closer.CloseRound(ctx, auctionID)
		if err == nil {
			return
		}
		// closeRound's precondition check makes closure idempotent: a
		// round already closed by a concurrent caller simply rejects with
		// ErrIllegalState, which is not worth retrying.
		if errs.Is(err, errs.ErrIllegalState) {
			return
		}
		lastErr = err
		if attempt < maxCloseAttempts-1 {
			time.Sleep(time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond)
		}
	}
	log.Printf("ERROR: scheduler failed to close round for auction %q after %d attempts: %v", auctionID, maxCloseAttempts, lastErr)
}
