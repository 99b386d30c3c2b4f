package orchestrator_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidstorm/internal/agent"
	"bidstorm/internal/auction"
	"bidstorm/internal/orchestrator"
	"bidstorm/internal/shape"
)

// fakeRunner blocks until its context is cancelled, tracking liveness.
type fakeRunner struct {
	live *atomic.Int64
	done *atomic.Int64
}

func (f *fakeRunner) Run(ctx context.Context) {
	f.live.Add(1)
	defer f.live.Add(-1)
	<-ctx.Done()
	f.done.Add(1)
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRun_TracksTargetAndDrains(t *testing.T) {
	var live, done atomic.Int64

	o := orchestrator.New(
		shape.Constant{Users: 8, Duration: 600 * time.Millisecond, SpawnRate: 1000},
		func(int) orchestrator.Runner { return &fakeRunner{live: &live, done: &done} },
		agent.NewBook(),
		discard(),
	)
	o.PollInterval = 20 * time.Millisecond
	o.MonitorInterval = time.Hour // keep the monitor out of this test

	start := time.Now()
	o.Run(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, int64(0), live.Load(), "every agent drained")
	assert.Equal(t, int64(8), done.Load(), "population reached the target")
	assert.Less(t, elapsed, 5*time.Second)
}

func TestRun_ScalesDownNewestFirst(t *testing.T) {
	var live, done atomic.Int64

	// Ramp to 10 for two polls, then hold a target of 3 until the
	// test cancels the run.
	s := &shrinkShape{}

	o := orchestrator.New(
		s,
		func(int) orchestrator.Runner { return &fakeRunner{live: &live, done: &done} },
		agent.NewBook(),
		discard(),
	)
	o.PollInterval = 20 * time.Millisecond
	o.MonitorInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(finished)
	}()

	require.Eventually(t, func() bool { return live.Load() == 3 },
		2*time.Second, 10*time.Millisecond, "population should shrink to 3")

	cancel()
	<-finished
	assert.Equal(t, int64(0), live.Load())
	assert.Equal(t, int64(10), done.Load(), "only ten agents ever spawned")
}

// shrinkShape asks for 10 users on its first two polls, then 3.
type shrinkShape struct {
	calls atomic.Int64
}

func (s *shrinkShape) Tick(time.Duration) (shape.Target, bool) {
	if s.calls.Add(1) <= 2 {
		return shape.Target{Users: 10, SpawnRate: 1000}, true
	}
	return shape.Target{Users: 3, SpawnRate: 1000}, true
}

func TestRun_SpawnRatePacesScaleUp(t *testing.T) {
	var live, done atomic.Int64

	o := orchestrator.New(
		shape.Constant{Users: 50, Duration: 400 * time.Millisecond, SpawnRate: 10},
		func(int) orchestrator.Runner { return &fakeRunner{live: &live, done: &done} },
		agent.NewBook(),
		discard(),
	)
	o.PollInterval = 50 * time.Millisecond
	o.MonitorInterval = time.Hour

	o.Run(context.Background())

	// 10/s for under half a second cannot have started 50 agents.
	assert.Less(t, done.Load(), int64(20))
	assert.Greater(t, done.Load(), int64(0))
}

func TestMonitor_StopsRunWhenAllAuctionsEnd(t *testing.T) {
	var live, done atomic.Int64

	book := agent.NewBook()
	book.Update([]auction.Product{
		{ID: "p1", EndTime: time.Now().Add(100 * time.Millisecond).UnixMilli()},
	})

	o := orchestrator.New(
		shape.Constant{Users: 2, Duration: time.Hour, SpawnRate: 100},
		func(int) orchestrator.Runner { return &fakeRunner{live: &live, done: &done} },
		book,
		discard(),
	)
	o.PollInterval = 20 * time.Millisecond
	o.MonitorInterval = 50 * time.Millisecond
	o.GracePeriod = 30 * time.Millisecond

	finished := make(chan struct{})
	go func() {
		o.Run(context.Background())
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop the run after the auctions ended")
	}
	assert.Equal(t, int64(0), live.Load())
}

func TestRun_ExternalCancelObserved(t *testing.T) {
	var live, done atomic.Int64

	o := orchestrator.New(
		shape.Constant{Users: 4, Duration: time.Hour, SpawnRate: 100},
		func(int) orchestrator.Runner { return &fakeRunner{live: &live, done: &done} },
		agent.NewBook(),
		discard(),
	)
	o.PollInterval = 20 * time.Millisecond
	o.MonitorInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(finished)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator ignored cancellation")
	}
}
