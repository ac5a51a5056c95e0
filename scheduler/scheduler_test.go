package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudx-io/auctionhouse/clock"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/engine"
	"github.com/cloudx-io/auctionhouse/ledger"
	"github.com/cloudx-io/auctionhouse/store"
)

type countingCloser struct {
	calls atomic.Int32
	err   error
}

func (c *countingCloser) CloseRound(ctx context.Context, auctionID string) (*core.Auction, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &core.Auction{ID: auctionID, Status: core.AuctionCompleted}, nil
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestTick_ClosesElapsedRoundsOnly(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	elapsed := &core.Auction{
		ID:              "elapsed",
		TotalItems:      1,
		WinnersPerRound: []int{1},
		Status:          core.AuctionActive,
		Rounds:          []core.Round{{RoundNumber: 1, Status: core.RoundActive, EndTime: time.Now().Add(-time.Second)}},
	}
	notElapsed := &core.Auction{
		ID:              "not-elapsed",
		TotalItems:      1,
		WinnersPerRound: []int{1},
		Status:          core.AuctionActive,
		Rounds:          []core.Round{{RoundNumber: 1, Status: core.RoundActive, EndTime: time.Now().Add(time.Hour)}},
	}
	require.NoError(t, s.SaveAuction(ctx, elapsed))
	require.NoError(t, s.SaveAuction(ctx, notElapsed))

	closer := &countingCloser{}
	sched := New(s, closer)
	sched.Tick(ctx)

	assert.Equal(t, int32(1), closer.calls.Load())
}

func TestTick_SkipsAuctionsWithoutActiveRound(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	draft := &core.Auction{ID: "draft", Status: core.AuctionDraft}
	require.NoError(t, s.SaveAuction(ctx, draft))

	closer := &countingCloser{}
	sched := New(s, closer)
	sched.Tick(ctx)

	assert.Equal(t, int32(0), closer.calls.Load())
}

func TestTick_LogsAndContinuesOnFailure(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	a := &core.Auction{
		ID:              "flaky",
		TotalItems:      1,
		WinnersPerRound: []int{1},
		Status:          core.AuctionActive,
		Rounds:          []core.Round{{RoundNumber: 1, Status: core.RoundActive, EndTime: time.Now().Add(-time.Second)}},
	}
	require.NoError(t, s.SaveAuction(ctx, a))

	closer := &countingCloser{err: assert.AnError}
	sched := New(s, closer)

	assert.NotPanics(t, func() { sched.Tick(ctx) })
	assert.Equal(t, int32(maxCloseAttempts), closer.calls.Load())
}

func TestWithInterval_OverridesDefaultCadence(t *testing.T) {
	s := store.NewMemoryStore()
	closer := &countingCloser{}
	sched := New(s, closer, WithInterval(25*time.Millisecond))

	assert.Equal(t, 25*time.Millisecond, sched.interval)
}

func TestStartStop_DoesNotPanic(t *testing.T) {
	s := store.NewMemoryStore()
	closer := &countingCloser{}
	sched := New(s, closer)

	sched.Start()
	sched.Stop()
	sched.Stop() // idempotent
}

// Integration: a real AuctionEngine closes a round once its deadline
// passes, driven entirely through the scheduler's Tick.
func TestTick_IntegratesWithRealEngine(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := ledger.New(fc, d("1000"))
	s := store.NewMemoryStore()
	e := engine.New(s, l, fc)
	ctx := context.Background()

	a, err := e.CreateAuction(ctx, engine.CreateAuctionInput{
		Title:         "scheduled",
		TotalItems:    1,
		ItemsPerRound: 1,
		RoundDuration: 10 * time.Second,
		MinBid:        d("1"),
	})
	require.NoError(t, err)
	_, err = e.StartAuction(ctx, a.ID)
	require.NoError(t, err)

	l.GetOrCreate("u1", "u1")
	_, err = e.PlaceBid(ctx, a.ID, "u1", d("5"))
	require.NoError(t, err)

	fc.Advance(10 * time.Second)

	sched := New(s, e)
	sched.Tick(ctx)

	final, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, core.AuctionCompleted, final.Status)
}
