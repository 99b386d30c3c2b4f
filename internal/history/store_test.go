package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTemp(t)

	e := Entry{
		ID:        "run-1",
		StartedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		MaxUsers:  1400,
		Requests:  90210,
		Bids:      4200,
		Verified:  true,
		Pass:      true,
	}
	require.NoError(t, s.Save(e))

	got, err := s.Get("run-1")
	require.NoError(t, err)
	require.Equal(t, e.MaxUsers, got.MaxUsers)
	require.Equal(t, e.Requests, got.Requests)
	require.True(t, got.StartedAt.Equal(e.StartedAt))
}

func TestStore_GetMissing(t *testing.T) {
	s := openTemp(t)

	_, err := s.Get("nope")
	require.Error(t, err)
}

func TestStore_LastOrdersByStartTime(t *testing.T) {
	s := openTemp(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(Entry{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := s.Last(3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "e", entries[0].ID)
	require.Equal(t, "d", entries[1].ID)
	require.Equal(t, "c", entries[2].ID)

	all, err := s.Last(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
}
