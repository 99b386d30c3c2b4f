package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8000", cfg.BaseURL)
	require.Equal(t, 1400, cfg.Shape.MaxUsers)
	require.Equal(t, 180, cfg.Shape.RampUpSec)
	require.Equal(t, 60, cfg.Shape.HoldSec)
	require.InDelta(t, 50.0, cfg.Shape.SpawnRate, 1e-9)
	require.Equal(t, 30, cfg.Run.RegistrationSec)
	require.Equal(t, 120, cfg.Run.BiddingSec)
	require.Equal(t, 5, cfg.Run.K)
	require.True(t, cfg.Verify.Enabled)
	require.Equal(t, "localhost:6379", cfg.Verify.RedisAddr)
	require.True(t, cfg.History.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BASE_URL", "http://auction.internal:9000")
	t.Setenv("DB_DSN", "postgres://x:y@db:5432/auction?sslmode=disable")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "http://auction.internal:9000", cfg.BaseURL)
	require.Equal(t, "postgres://x:y@db:5432/auction?sslmode=disable", cfg.Verify.DSN)
	require.Equal(t, "cache:6380", cfg.Verify.RedisAddr)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harness.yaml")
	data := []byte("base_url: http://stage:8000\nshape:\n  max_users: 200\n  spawn_rate: 10\nrun:\n  products: 2\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://stage:8000", cfg.BaseURL)
	require.Equal(t, 200, cfg.Shape.MaxUsers)
	require.Equal(t, 2, cfg.Run.Products)
	// untouched sections keep defaults
	require.Equal(t, 60, cfg.Shape.HoldSec)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shape:\n  max_users: 0\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestStagesAndDurations(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	st := cfg.Stages()
	require.Equal(t, 1400, st.MaxUsers)
	require.Equal(t, 180*time.Second, st.RampUp)
	require.Equal(t, 60*time.Second, st.Hold)
	require.Equal(t, 30*time.Second, cfg.Registration())
	require.Equal(t, 120*time.Second, cfg.Bidding())
	require.Equal(t, 10*time.Second, cfg.Timeout())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel("garbage"))
}
