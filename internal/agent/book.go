package agent

import (
	"math/rand"
	"sync"
	"time"

	"bidstorm/internal/auction"
)

// Book is the shared view of the products under load: which ids exist
// and when each auction closes. Any agent may refresh it from a list
// response; the orchestrator's end-of-auction monitor reads it.
type Book struct {
	mu   sync.RWMutex
	ids  []string
	ends map[string]time.Time
}

func NewBook() *Book {
	return &Book{ends: make(map[string]time.Time)}
}

// Update merges a product listing into the book. End times are kept
// from the first sighting; the backend does not move them mid-run.
func (b *Book) Update(products []auction.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range products {
		if _, known := b.ends[p.ID]; !known {
			b.ids = append(b.ids, p.ID)
			if p.EndTime > 0 {
				b.ends[p.ID] = time.UnixMilli(p.EndTime)
			} else {
				b.ends[p.ID] = time.Time{}
			}
		}
	}
}

// Random picks one tracked product id.
func (b *Book) Random(rng *rand.Rand) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.ids) == 0 {
		return "", false
	}
	return b.ids[rng.Intn(len(b.ids))], true
}

func (b *Book) EndTime(productID string) (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	end, ok := b.ends[productID]
	return end, ok && !end.IsZero()
}

// AllEnded reports whether every tracked product has passed its close
// time. An empty book is never "ended" — the run may still be warming
// up.
func (b *Book) AllEnded(now time.Time) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.ids) == 0 {
		return false
	}
	for _, end := range b.ends {
		if end.IsZero() || now.Before(end) {
			return false
		}
	}
	return true
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids)
}

func (b *Book) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.ids))
	copy(out, b.ids)
	return out
}
