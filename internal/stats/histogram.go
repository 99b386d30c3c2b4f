package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// liveHistogram is a thread-safe HDR histogram backing the cheap
// mid-run snapshots. Final report percentiles come from the exact
// per-operation reservoirs instead.
type liveHistogram struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

func newLiveHistogram() *liveHistogram {
	// 1us to 10min, 3 significant figures
	return &liveHistogram{
		hist: hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3),
	}
}

func (h *liveHistogram) record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.hist.RecordValue(d.Microseconds())
}

func (h *liveHistogram) quantileMs(q float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return float64(h.hist.ValueAtQuantile(q)) / 1000.0
}

func (h *liveHistogram) meanMs() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.Mean() / 1000.0
}
