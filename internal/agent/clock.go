package agent

import "time"

// Clock splits the run into a registration phase, where agents only
// authenticate and browse, and the bidding phase that follows. All
// agents share one clock so the phase flips for everyone at once.
type Clock struct {
	start        time.Time
	registration time.Duration
}

func NewClock(start time.Time, registration time.Duration) *Clock {
	return &Clock{start: start, registration: registration}
}

func (c *Clock) Elapsed() time.Duration {
	return time.Since(c.start)
}

func (c *Clock) InBidding() bool {
	return c.Elapsed() >= c.registration
}

// BiddingElapsed is the time since the bidding phase began, zero while
// still registering. The ramp-up bid rate grows from this.
func (c *Clock) BiddingElapsed() time.Duration {
	d := c.Elapsed() - c.registration
	if d < 0 {
		return 0
	}
	return d
}
