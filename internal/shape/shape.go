package shape

import (
	"math"
	"time"
)

// Target is the agent population the orchestrator should be running.
type Target struct {
	Users     int
	SpawnRate float64 // agents started per second while scaling up
}

// Shape maps elapsed run time to a target population. The second
// return value is false once the run should terminate. Implementations
// must be pure: same elapsed in, same target out.
type Shape interface {
	Tick(elapsed time.Duration) (Target, bool)
}

// Stages grows the population linearly to MaxUsers over RampUp, holds
// it for Hold, then terminates the run. Spawn rate is constant across
// phases.
type Stages struct {
	MaxUsers  int
	RampUp    time.Duration
	Hold      time.Duration
	SpawnRate float64
}

func (s Stages) Tick(elapsed time.Duration) (Target, bool) {
	if elapsed > s.RampUp+s.Hold {
		return Target{}, false
	}

	users := s.MaxUsers
	if elapsed <= s.RampUp && s.RampUp > 0 {
		users = int(math.Floor(float64(s.MaxUsers) * (elapsed.Seconds() / s.RampUp.Seconds())))
	}
	// Never drop to zero users mid-run.
	if users < 1 {
		users = 1
	}

	return Target{Users: users, SpawnRate: s.SpawnRate}, true
}

// Constant holds a fixed population for a fixed duration. Handy for
// smoke runs against a local backend.
type Constant struct {
	Users     int
	Duration  time.Duration
	SpawnRate float64
}

func (c Constant) Tick(elapsed time.Duration) (Target, bool) {
	if elapsed > c.Duration {
		return Target{}, false
	}
	users := c.Users
	if users < 1 {
		users = 1
	}
	return Target{Users: users, SpawnRate: c.SpawnRate}, true
}
