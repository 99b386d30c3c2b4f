package shape_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidstorm/internal/shape"
)

func TestStages_RampHoldTerminate(t *testing.T) {
	s := shape.Stages{
		MaxUsers:  1400,
		RampUp:    180 * time.Second,
		Hold:      60 * time.Second,
		SpawnRate: 50,
	}

	cases := []struct {
		elapsed time.Duration
		users   int
	}{
		{0, 1}, // clamped, never zero
		{90 * time.Second, 700},
		{180 * time.Second, 1400},
		{240 * time.Second, 1400},
	}

	for _, tc := range cases {
		target, ok := s.Tick(tc.elapsed)
		require.True(t, ok, "elapsed %s", tc.elapsed)
		assert.Equal(t, tc.users, target.Users, "elapsed %s", tc.elapsed)
		assert.Equal(t, 50.0, target.SpawnRate)
	}

	_, ok := s.Tick(241 * time.Second)
	assert.False(t, ok, "run must terminate after ramp+hold")
}

func TestStages_Deterministic(t *testing.T) {
	s := shape.Stages{MaxUsers: 100, RampUp: time.Minute, Hold: time.Minute, SpawnRate: 10}

	a, okA := s.Tick(30 * time.Second)
	b, okB := s.Tick(30 * time.Second)
	assert.Equal(t, a, b)
	assert.Equal(t, okA, okB)
	assert.Equal(t, 50, a.Users)
}

func TestStages_FloorNotRound(t *testing.T) {
	s := shape.Stages{MaxUsers: 10, RampUp: 3 * time.Second, Hold: 0, SpawnRate: 1}

	// 10 * 2.9/3 = 9.66..., floored to 9.
	target, ok := s.Tick(2900 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 9, target.Users)
}

func TestConstant(t *testing.T) {
	c := shape.Constant{Users: 5, Duration: 10 * time.Second, SpawnRate: 5}

	target, ok := c.Tick(5 * time.Second)
	require.True(t, ok)
	assert.Equal(t, 5, target.Users)

	_, ok = c.Tick(11 * time.Second)
	assert.False(t, ok)
}
