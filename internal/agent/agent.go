// Package agent implements the virtual bidding user: a per-goroutine
// state machine that authenticates, then cycles through weighted
// browse/rank/bid tasks until the run shuts down.
package agent

import (
	"context"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bidstorm/internal/auction"
	"bidstorm/internal/pricecache"
)

// Phase is the agent lifecycle state. Transitions are monotonic:
// Unauthenticated → Authenticated → Terminated, or Unauthenticated →
// Failed and nothing after.
type Phase int32

const (
	PhaseUnauthenticated Phase = iota
	PhaseAuthenticated
	PhaseFailed
	PhaseTerminated
)

// Task weights for the steady bidder, mirroring the relative call
// frequency of a real client.
const (
	weightList     = 3
	weightDetail   = 2
	weightRankings = 5
)

const (
	authAttempts = 3
	authBackoff  = 100 * time.Millisecond
)

// unknownClose stands in for the time to close when the backend omits
// a product's end time. Far enough out that no urgency tier applies.
const unknownClose = 999 * time.Second

type Config struct {
	WaitMin   time.Duration
	WaitMax   time.Duration
	BidWeight int
	RampUp    bool
	Rate      RateParams
}

// SteadyConfig is the default bidder profile.
func SteadyConfig() Config {
	return Config{
		WaitMin:   1 * time.Second,
		WaitMax:   3 * time.Second,
		BidWeight: 8,
	}
}

// RampUpConfig is the variant whose bid frequency grows exponentially
// over the bidding phase and spikes near each auction's close.
func RampUpConfig() Config {
	return Config{
		WaitMin:   300 * time.Millisecond,
		WaitMax:   1 * time.Second,
		BidWeight: 30,
		RampUp:    true,
		Rate:      DefaultRateParams(),
	}
}

type Agent struct {
	username string
	password string

	client *auction.Client
	cache  *pricecache.Cache
	book   *Book
	clock  *Clock
	cfg    Config
	log    *slog.Logger
	rng    *rand.Rand

	token  string
	userID string
	phase  atomic.Int32
}

func New(client *auction.Client, cache *pricecache.Cache, book *Book, clock *Clock, cfg Config, log *slog.Logger, seed int64) *Agent {
	return &Agent{
		username: "user_" + uuid.NewString(),
		password: "test123456",
		client:   client,
		cache:    cache,
		book:     book,
		clock:    clock,
		cfg:      cfg,
		log:      log,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (a *Agent) Phase() Phase {
	return Phase(a.phase.Load())
}

// Run drives the agent until ctx is cancelled. Cancellation is checked
// between cycles only; an in-flight request is always allowed to
// finish.
func (a *Agent) Run(ctx context.Context) {
	if !a.authenticate(ctx) {
		a.phase.Store(int32(PhaseFailed))
		a.log.Debug("agent failed to authenticate, giving up", "user", a.username)
		return
	}
	a.phase.Store(int32(PhaseAuthenticated))
	defer a.phase.Store(int32(PhaseTerminated))

	// Prime the shared product view before the first cycle.
	a.listProducts(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(a.pause()):
		}
		if ctx.Err() != nil {
			return
		}
		a.step(ctx)
	}
}

// authenticate registers and logs in, with a short growing backoff
// between attempts. Registration rejections are ignored: the username
// may already exist from a previous attempt, login decides.
func (a *Agent) authenticate(ctx context.Context) bool {
	for attempt := 1; attempt <= authAttempts; attempt++ {
		_, _ = a.client.Register(ctx, auction.Credentials{
			Username: a.username,
			Password: a.password,
			Role:     "member",
		})

		auth, err := a.client.Login(ctx, a.username, a.password)
		if err == nil && auth.Token != "" {
			a.token = auth.Token
			a.userID = auth.User.ID
			return true
		}

		if attempt == authAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * authBackoff):
		}
	}
	return false
}

func (a *Agent) step(ctx context.Context) {
	total := weightList + weightDetail + weightRankings + a.cfg.BidWeight
	n := a.rng.Intn(total)
	switch {
	case n < weightList:
		a.listProducts(ctx)
	case n < weightList+weightDetail:
		a.productDetail(ctx)
	case n < weightList+weightDetail+weightRankings:
		a.viewRankings(ctx)
	default:
		a.placeBid(ctx)
	}
}

func (a *Agent) listProducts(ctx context.Context) {
	products, err := a.client.ListProducts(ctx, a.token)
	if err != nil {
		return
	}
	a.book.Update(products)
	for _, p := range products {
		if p.CurrentHighestPrice > 0 {
			a.cache.Put(p.ID, p.CurrentHighestPrice)
		} else if p.BasePrice > 0 {
			a.cache.Put(p.ID, p.BasePrice)
		}
	}
}

func (a *Agent) productDetail(ctx context.Context) {
	id, ok := a.book.Random(a.rng)
	if !ok {
		return
	}
	p, err := a.client.ProductDetail(ctx, a.token, id)
	if err != nil {
		return
	}
	if p.CurrentHighestPrice > 0 {
		a.cache.Put(id, p.CurrentHighestPrice)
	}
}

func (a *Agent) viewRankings(ctx context.Context) {
	id, ok := a.book.Random(a.rng)
	if !ok {
		return
	}
	r, err := a.client.Rankings(ctx, a.token, id)
	if err == nil && r.CurrentHighestPrice > 0 {
		a.cache.Put(id, r.CurrentHighestPrice)
	}

	// Once the auction has closed the results page becomes readable.
	if end, known := a.book.EndTime(id); known && time.Now().After(end) {
		_ = a.client.Results(ctx, a.token, id)
	}
}

// placeBid computes a competitive price from the shared cache and the
// urgency tier, submits it, and on a validation rejection retries once
// with a refreshed price. The read-then-bid window is racy on purpose:
// the cache is an eventually-stale hint, the backend validates.
func (a *Agent) placeBid(ctx context.Context) {
	if !a.clock.InBidding() {
		return
	}
	id, ok := a.book.Random(a.rng)
	if !ok {
		return
	}
	ttc := unknownClose
	if end, known := a.book.EndTime(id); known {
		ttc = time.Until(end)
		if ttc <= 0 {
			return
		}
	}

	if a.cfg.RampUp {
		p := a.cfg.Rate.Probability(a.clock.BiddingElapsed(), ttc)
		if a.rng.Float64() >= p {
			return
		}
	}

	lo, hi := IncrementRange(ttc)
	price := a.cache.Get(id) + a.uniform(lo, hi)

	_, err := a.client.PlaceBid(ctx, auction.OpPlaceBid, a.token, id, price)
	if err == nil {
		a.cache.Put(id, price)
		return
	}
	if !auction.IsValidation(err) {
		return
	}

	// Rejected as too low: refresh from the cache and retry exactly
	// once with a fresh draw from the same tier.
	price = a.cache.Get(id) + a.uniform(lo, hi)
	if _, err := a.client.PlaceBid(ctx, auction.OpRetryBid, a.token, id, price); err == nil {
		a.cache.Put(id, price)
	}
}

func (a *Agent) uniform(lo, hi float64) float64 {
	return lo + a.rng.Float64()*(hi-lo)
}

// pause is the randomized think time between cycles, the agent's only
// voluntary suspension point besides network I/O.
func (a *Agent) pause() time.Duration {
	if a.cfg.WaitMax <= a.cfg.WaitMin {
		return a.cfg.WaitMin
	}
	return a.cfg.WaitMin + time.Duration(a.rng.Int63n(int64(a.cfg.WaitMax-a.cfg.WaitMin)))
}
