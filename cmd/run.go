package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"bidstorm/internal/agent"
	"bidstorm/internal/auction"
	"bidstorm/internal/config"
	"bidstorm/internal/history"
	"bidstorm/internal/orchestrator"
	"bidstorm/internal/pricecache"
	"bidstorm/internal/report"
	"bidstorm/internal/setup"
	"bidstorm/internal/stats"
	"bidstorm/internal/verify"
)

func runHarness(cfg *config.Config) error {
	log := config.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	client := auction.NewClient(cfg.BaseURL, cfg.Timeout(), collector)
	cache := pricecache.New(cfg.Run.BasePrice)
	book := agent.NewBook()

	log.Info("bootstrapping run",
		"base_url", cfg.BaseURL,
		"max_users", cfg.Shape.MaxUsers,
		"products", cfg.Run.Products)

	plan, err := setup.Bootstrap(ctx, client, cfg, cache, book, log)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	started := time.Now()
	clock := agent.NewClock(started, cfg.Registration())

	// Early slots in every group of ten become aggressive ramp-up
	// bidders, the rest follow the steady profile.
	rampSlots := int(cfg.Run.RampUpRatio * 10)
	factory := func(i int) orchestrator.Runner {
		acfg := agent.SteadyConfig()
		if i%10 < rampSlots {
			acfg = agent.RampUpConfig()
		}
		return agent.New(client, cache, book, clock, acfg, log, started.UnixNano()+int64(i))
	}

	orch := orchestrator.New(cfg.Stages(), factory, book, log)

	progressCtx, stopProgress := context.WithCancel(ctx)
	go progress(progressCtx, collector, log)

	orch.Run(ctx)
	stopProgress()

	rep := collector.Finalize()
	finished := time.Now()

	var vr *verify.Report
	if cfg.Verify.Enabled {
		// The run context may already be cancelled by a signal;
		// verification gets its own deadline.
		vctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		vr, err = runVerification(vctx, cfg, plan.Products, log)
		if err != nil {
			log.Error("verification could not run", "err", err)
		}
	}

	report.Render(os.Stdout, rep, vr)

	if cfg.History.Enabled {
		if err := saveHistory(cfg, rep, vr, started, finished); err != nil {
			log.Warn("could not record run history", "err", err)
		}
	}

	if cfg.Verify.Enabled && (vr == nil || !vr.OK()) {
		return fmt.Errorf("verification failed")
	}
	return nil
}

func progress(ctx context.Context, collector *stats.Collector, log *slog.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := collector.Snapshot()
			log.Info("progress",
				"requests", s.Requests,
				"fail", s.Fail,
				"mean_ms", fmt.Sprintf("%.1f", s.MeanMs),
				"p99_ms", fmt.Sprintf("%.1f", s.P99Ms))
		}
	}
}

func runVerification(ctx context.Context, cfg *config.Config, products []verify.Product, log *slog.Logger) (*verify.Report, error) {
	bids, err := verify.OpenPostgres(ctx, cfg.Verify.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	defer bids.Close()

	board, err := verify.OpenRedis(ctx, cfg.Verify.RedisAddr, cfg.Verify.RedisPassword, cfg.Verify.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	defer board.Close()

	rep, err := verify.New(bids, board, log).Verify(ctx, products)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func saveHistory(cfg *config.Config, rep stats.Report, vr *verify.Report, started, finished time.Time) error {
	path := cfg.History.Path
	if path == "" {
		var err error
		if path, err = history.DefaultPath(); err != nil {
			return err
		}
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	e := history.Entry{
		ID:         uuid.NewString(),
		StartedAt:  started,
		FinishedAt: finished,
		MaxUsers:   cfg.Shape.MaxUsers,
		RampUpSec:  cfg.Shape.RampUpSec,
		HoldSec:    cfg.Shape.HoldSec,
		Requests:   rep.TotalRequests,
		Fail:       rep.TotalFail,
		Bids:       rep.Bids(auction.OpPlaceBid, auction.OpRetryBid),
		Products:   cfg.Run.Products,
	}
	if vr != nil {
		e.Verified = true
		e.Pass = vr.OK()
	}
	return store.Save(e)
}
