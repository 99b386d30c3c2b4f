// Package orchestrator scales the live agent population to track the
// configured load shape and owns the run's shutdown signal.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"bidstorm/internal/agent"
	"bidstorm/internal/shape"
)

// Runner is one schedulable virtual user. *agent.Agent implements it.
type Runner interface {
	Run(ctx context.Context)
}

// Factory builds the i-th agent. The caller decides the steady vs
// ramp-up mix here.
type Factory func(i int) Runner

type Orchestrator struct {
	Shape shape.Shape
	Spawn Factory
	Book  *agent.Book
	Log   *slog.Logger

	// Poll and monitor cadence, overridable in tests.
	PollInterval    time.Duration
	MonitorInterval time.Duration
	GracePeriod     time.Duration
}

func New(s shape.Shape, spawn Factory, book *agent.Book, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		Shape:           s,
		Spawn:           spawn,
		Book:            book,
		Log:             log,
		PollInterval:    time.Second,
		MonitorInterval: 5 * time.Second,
		GracePeriod:     2 * time.Second,
	}
}

// Run drives the population until the shape terminates, all tracked
// auctions end, or ctx is cancelled. It returns once every agent has
// drained.
func (o *Orchestrator) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go o.monitor(ctx, cancel)

	var wg sync.WaitGroup
	var cancels []context.CancelFunc
	started := 0
	startedAt := time.Now()

	var limiter *rate.Limiter
	var limiterRate float64

	ticker := time.NewTicker(o.PollInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		target, ok := o.Shape.Tick(time.Since(startedAt))
		if !ok {
			o.Log.Info("load shape complete, stopping", "spawned", started)
			break loop
		}

		if limiter == nil || limiterRate != target.SpawnRate {
			burst := int(target.SpawnRate)
			if burst < 1 {
				burst = 1
			}
			limiter = rate.NewLimiter(rate.Limit(target.SpawnRate), burst)
			limiterRate = target.SpawnRate
		}

		// Scale up, paced by the spawn rate; unspent budget carries
		// over to the next poll.
		for len(cancels) < target.Users && limiter.Allow() {
			actx, acancel := context.WithCancel(ctx)
			cancels = append(cancels, acancel)

			a := o.Spawn(started)
			started++

			wg.Add(1)
			go func() {
				defer wg.Done()
				a.Run(actx)
			}()
		}

		// Scale down newest-first.
		for len(cancels) > target.Users {
			last := len(cancels) - 1
			cancels[last]()
			cancels = cancels[:last]
		}
	}

	cancel()
	wg.Wait()
	o.Log.Info("all agents drained", "spawned", started)
}

// monitor watches the shared product book and triggers shutdown once
// every tracked auction has passed its close time, after a short grace
// period for trailing in-flight bids.
func (o *Orchestrator) monitor(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(o.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !o.Book.AllEnded(time.Now()) {
			continue
		}

		o.Log.Info("all auctions ended, stopping after grace period",
			"grace", o.GracePeriod)
		select {
		case <-time.After(o.GracePeriod):
		case <-ctx.Done():
		}
		cancel()
		return
	}
}
