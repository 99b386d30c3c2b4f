package agent

import (
	"math"
	"time"
)

// IncrementRange returns the bid increment bounds for a given time to
// close. Agents bid more aggressively as the auction nears its end.
func IncrementRange(timeToClose time.Duration) (lo, hi float64) {
	switch {
	case timeToClose <= 10*time.Second:
		return 200, 800
	case timeToClose <= 30*time.Second:
		return 150, 600
	default:
		return 100, 500
	}
}

// RateParams shapes the ramp-up variant's bid frequency: an
// exponentially growing base rate, further multiplied by an urgency
// factor in the last 30 seconds of an auction.
type RateParams struct {
	Base        float64       // bids/sec at bidding-phase start
	Doubling    time.Duration // base rate doubles every period
	PreCap      float64       // cap before urgency kicks in
	UrgencyCap  float64       // cap on the urgency multiplier itself
	PostCap     float64       // cap after urgency
	RateCap     float64       // normalizer for the bid probability
	ProbCeiling float64       // never bid with more than this probability
}

func DefaultRateParams() RateParams {
	return RateParams{
		Base:        0.1,
		Doubling:    12 * time.Second,
		PreCap:      12,
		UrgencyCap:  5,
		PostCap:     18,
		RateCap:     15,
		ProbCeiling: 0.95,
	}
}

// Rate is the target bid frequency at a point in time: sinceBidding is
// measured from the start of the bidding phase, timeToClose from now
// to the product's close.
func (p RateParams) Rate(sinceBidding, timeToClose time.Duration) float64 {
	r := p.Base * math.Pow(2, sinceBidding.Seconds()/p.Doubling.Seconds())
	r = math.Min(r, p.PreCap)

	ttc := timeToClose.Seconds()
	switch {
	case ttc <= 30:
		urgency := math.Min(math.Pow(2, (30-ttc)/5), p.UrgencyCap)
		r = math.Min(r*urgency, p.PostCap)
	case ttc <= 60:
		r = math.Min(r*1.5, p.RateCap)
	}
	return r
}

// Probability converts the current rate into a per-cycle chance of
// attempting a bid.
func (p RateParams) Probability(sinceBidding, timeToClose time.Duration) float64 {
	return math.Min(p.Rate(sinceBidding, timeToClose)/p.RateCap, p.ProbCeiling)
}
