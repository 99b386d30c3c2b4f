// Package pricecache holds the highest observed bid price per product,
// shared between all virtual users. It is a best-effort hint for
// computing competitive bids, not a source of truth: the backend may
// always be ahead of it.
package pricecache

import (
	"math"
	"sync"
	"sync/atomic"
)

// Cache is a concurrency-safe monotonic-max price store. Updates only
// take effect when they raise the cached value, so concurrent writers
// for the same product cannot lose the maximum.
type Cache struct {
	fallback float64

	mu      sync.RWMutex
	entries map[string]*entry
}

// Prices are stored as float bits so the monotonic update can be a CAS
// loop instead of a per-entry lock.
type entry struct {
	bits atomic.Uint64
}

func New(fallback float64) *Cache {
	return &Cache{
		fallback: fallback,
		entries:  make(map[string]*entry),
	}
}

// Get returns the last observed highest price for the product, or the
// configured fallback when the product has never been seen.
func (c *Cache) Get(productID string) float64 {
	c.mu.RLock()
	e := c.entries[productID]
	c.mu.RUnlock()
	if e == nil {
		return c.fallback
	}
	return math.Float64frombits(e.bits.Load())
}

// Put records a price if it exceeds the current value, otherwise it is
// a no-op. Entries live for the whole run; nothing is ever deleted.
func (c *Cache) Put(productID string, price float64) {
	e := c.lookup(productID)
	for {
		cur := e.bits.Load()
		if price <= math.Float64frombits(cur) {
			return
		}
		if e.bits.CompareAndSwap(cur, math.Float64bits(price)) {
			return
		}
	}
}

// Snapshot copies the current view, for reporting.
func (c *Cache) Snapshot() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(c.entries))
	for id, e := range c.entries {
		out[id] = math.Float64frombits(e.bits.Load())
	}
	return out
}

func (c *Cache) lookup(productID string) *entry {
	c.mu.RLock()
	e := c.entries[productID]
	c.mu.RUnlock()
	if e != nil {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e = c.entries[productID]; e != nil {
		return e
	}
	e = &entry{}
	e.bits.Store(math.Float64bits(c.fallback))
	c.entries[productID] = e
	return e
}
