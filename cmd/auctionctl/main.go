// Command auctionctl is a small, single-run demo wiring of the auction
// engine: create an auction, seed a few bidders, place bids, then wait on
// the system clock while the round scheduler closes rounds until the
// auction finalizes, printing the result as JSON. It is not the
// load-test/demo-bot spec.md's Non-goals exclude — one run through the
// engine, in the flag-driven CLI shape
// of the teacher's validation/cmd/auction-validator.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/clock"
	"github.com/cloudx-io/auctionhouse/config"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/engine"
	"github.com/cloudx-io/auctionhouse/ledger"
	"github.com/cloudx-io/auctionhouse/query"
	"github.com/cloudx-io/auctionhouse/scheduler"
	"github.com/cloudx-io/auctionhouse/store"
)

func main() {
	var (
		totalItems    = flag.Int("total-items", 2, "total items to auction off")
		itemsPerRound = flag.Int("items-per-round", 1, "winning slots per round")
		roundDuration = flag.Duration("round-duration", 10*time.Second, "duration of each round")
		minBid        = flag.String("min-bid", "1", "minimum admissible bid amount")
		bidders       = flag.Int("bidders", 3, "number of demo bidders to seed")
		help          = flag.Bool("help", false, "show usage information")
	)
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	cfg := config.FromEnv()
	min, err := decimal.NewFromString(*minBid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -min-bid %q: %v\n", *minBid, err)
		os.Exit(1)
	}

	sysClock := clock.System{}
	l := ledger.New(sysClock, cfg.LedgerInitialBalance)
	s := store.NewMemoryStore()
	e := engine.New(s, l, sysClock,
		engine.WithMinRoundDuration(cfg.MinRoundDuration),
		engine.WithDefaultAntiSnipingWindow(cfg.DefaultAntiSnipingWindow),
	)
	q := query.New(s)

	sched := scheduler.New(s, e, scheduler.WithInterval(cfg.SchedulerInterval))
	sched.Start()
	defer sched.Stop()

	ctx := context.Background()
	a, err := e.CreateAuction(ctx, engine.CreateAuctionInput{
		Title:         "auctionctl demo",
		TotalItems:    *totalItems,
		ItemsPerRound: *itemsPerRound,
		RoundDuration: *roundDuration,
		MinBid:        min,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create auction: %v\n", err)
		os.Exit(1)
	}

	if _, err := e.StartAuction(ctx, a.ID); err != nil {
		fmt.Fprintf(os.Stderr, "start auction: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *bidders; i++ {
		userID := fmt.Sprintf("bidder-%d", i+1)
		l.GetOrCreate(userID, userID)
		amount := min.Add(decimal.NewFromInt(int64(i)))
		if _, err := e.PlaceBid(ctx, a.ID, userID, amount); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: bid from %s rejected: %v\n", userID, err)
		}
	}

	// Round closure from here on is entirely the scheduler's job — it wakes
	// on its own configured cadence, finds this auction's elapsed round,
	// and closes it, same as it would for any number of auctions in a long
	// running process.
	pollInterval := cfg.SchedulerInterval
	if pollInterval > 250*time.Millisecond {
		pollInterval = 250 * time.Millisecond
	}
	for {
		current, err := s.FindByID(ctx, a.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "find auction: %v\n", err)
			os.Exit(1)
		}
		if current.Status == core.AuctionCompleted {
			break
		}
		time.Sleep(pollInterval)
	}

	final, err := s.FindByID(ctx, a.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "find auction: %v\n", err)
		os.Exit(1)
	}

	active, err := q.ActiveAuctions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list active auctions: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "INFO: %d auctions still active after run\n", len(active))

	out, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
