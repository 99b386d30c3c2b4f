// Package stats aggregates the outcome stream of all virtual users.
package stats

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector ingests operation outcomes from any number of concurrent
// agents. It satisfies the auction client's Observer interface.
type Collector struct {
	started time.Time

	// Live counters for progress snapshots.
	requests atomic.Uint64
	success  atomic.Uint64
	fail     atomic.Uint64
	live     *liveHistogram

	mu   sync.Mutex
	ops  map[string]*series
	errs map[Outcome]uint64
}

// series is the per-operation reservoir. Latencies are unbounded and
// append-only so the final percentiles can be exact.
type series struct {
	mu        sync.Mutex
	latencies []time.Duration
	success   uint64
	fail      uint64
}

func NewCollector() *Collector {
	return &Collector{
		started: time.Now(),
		live:    newLiveHistogram(),
		ops:     make(map[string]*series),
		errs:    make(map[Outcome]uint64),
	}
}

// Record ingests one sample. Safe for arbitrarily many concurrent
// callers under the same operation name.
func (c *Collector) Record(op string, latency time.Duration, outcome Outcome) {
	c.requests.Add(1)
	if outcome == Success {
		c.success.Add(1)
	} else {
		c.fail.Add(1)
	}
	c.live.record(latency)

	c.mu.Lock()
	s := c.ops[op]
	if s == nil {
		s = &series{}
		c.ops[op] = s
	}
	if outcome != Success {
		c.errs[outcome]++
	}
	c.mu.Unlock()

	s.mu.Lock()
	s.latencies = append(s.latencies, latency)
	if outcome == Success {
		s.success++
	} else {
		s.fail++
	}
	s.mu.Unlock()
}

// Snapshot is a cheap point-in-time view for the progress line.
type Snapshot struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	MeanMs   float64
	P50Ms    float64
	P99Ms    float64
}

func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Requests: c.requests.Load(),
		Success:  c.success.Load(),
		Fail:     c.fail.Load(),
		MeanMs:   c.live.meanMs(),
		P50Ms:    c.live.quantileMs(50),
		P99Ms:    c.live.quantileMs(99),
	}
}

// OpSummary is the finalized view of one operation.
type OpSummary struct {
	Name        string
	Count       int
	SuccessRate float64 // successes / (successes + failures)
	MeanMs      float64
	MinMs       float64
	MaxMs       float64
	P50Ms       float64
	P95Ms       float64
	P99Ms       float64
}

// Report is the aggregate outcome of a whole run.
type Report struct {
	Started  time.Time
	Finished time.Time
	Ops      []OpSummary
	Errors   map[string]uint64

	TotalRequests uint64
	TotalSuccess  uint64
	TotalFail     uint64
}

// Finalize computes exact per-operation summaries. Percentiles use the
// sorted reservoir at rank ceil(p*n)-1.
func (c *Collector) Finalize() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	rep := Report{
		Started:       c.started,
		Finished:      time.Now(),
		Errors:        make(map[string]uint64, len(c.errs)),
		TotalRequests: c.requests.Load(),
		TotalSuccess:  c.success.Load(),
		TotalFail:     c.fail.Load(),
	}
	for outcome, n := range c.errs {
		rep.Errors[outcome.String()] = n
	}

	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := c.ops[name]
		s.mu.Lock()
		rep.Ops = append(rep.Ops, summarize(name, s))
		s.mu.Unlock()
	}
	return rep
}

func summarize(name string, s *series) OpSummary {
	sum := OpSummary{Name: name, Count: len(s.latencies)}

	total := s.success + s.fail
	if total > 0 {
		sum.SuccessRate = float64(s.success) / float64(total)
	}
	if len(s.latencies) == 0 {
		return sum
	}

	sorted := make([]time.Duration, len(s.latencies))
	copy(sorted, s.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var acc time.Duration
	for _, d := range sorted {
		acc += d
	}
	sum.MeanMs = float64(acc.Microseconds()) / float64(len(sorted)) / 1000.0
	sum.MinMs = ms(sorted[0])
	sum.MaxMs = ms(sorted[len(sorted)-1])
	sum.P50Ms = ms(percentile(sorted, 0.50))
	sum.P95Ms = ms(percentile(sorted, 0.95))
	sum.P99Ms = ms(percentile(sorted, 0.99))
	return sum
}

// percentile picks the value at rank ceil(p*n)-1 of a sorted slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// Bids sums the sample counts of the given operation names, used for
// the "total bids" line of the report.
func (r Report) Bids(ops ...string) int {
	var n int
	for _, sum := range r.Ops {
		for _, op := range ops {
			if sum.Name == op {
				n += sum.Count
			}
		}
	}
	return n
}
