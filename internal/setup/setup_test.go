package setup_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bidstorm/internal/agent"
	"bidstorm/internal/auction"
	"bidstorm/internal/config"
	"bidstorm/internal/pricecache"
	"bidstorm/internal/setup"
	"bidstorm/internal/stats"
)

type nopObserver struct{}

func (nopObserver) Record(string, time.Duration, stats.Outcome) {}

func testConfig() *config.Config {
	return &config.Config{
		Run: config.RunConfig{
			RegistrationSec: 30,
			BiddingSec:      120,
			Products:        3,
			K:               5,
			TimeoutSec:      5,
			BasePrice:       1000,
		},
	}
}

// adminServer accepts admin registration and records created products.
type adminServer struct {
	created atomic.Int64
	mux     *http.ServeMux
}

func newAdminServer() *adminServer {
	s := &adminServer{mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "t", "user": map[string]string{"id": "u1"}})
	})
	s.mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "admin-token", "user": map[string]string{"id": "u1"}})
	})
	s.mux.HandleFunc("POST /api/admin/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer admin-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		n := s.created.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("prod-%d", n)})
	})
	return s
}

func TestBootstrap_CreatesProducts(t *testing.T) {
	fake := newAdminServer()
	srv := httptest.NewServer(fake.mux)
	defer srv.Close()

	cfg := testConfig()
	cache := pricecache.New(cfg.Run.BasePrice)
	book := agent.NewBook()
	client := auction.NewClient(srv.URL, 5*time.Second, nopObserver{})
	log := slog.New(slog.DiscardHandler)

	plan, err := setup.Bootstrap(context.Background(), client, cfg, cache, book, log)
	require.NoError(t, err)

	require.Equal(t, "admin-token", plan.AdminToken)
	require.Len(t, plan.Products, 3)
	require.Equal(t, int64(3), fake.created.Load())
	for _, p := range plan.Products {
		require.Equal(t, 5, p.K)
	}

	require.Equal(t, 3, book.Len())
	require.InDelta(t, 1000.0, cache.Get("prod-1"), 1e-9)
	require.InDelta(t, 1200.0, cache.Get("prod-3"), 1e-9)
}

func TestBootstrap_AdoptsExistingWhenAdminRefused(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["role"] == "admin" {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"token": "t", "user": map[string]string{"id": "u2"}})
	})
	logins := 0
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		if logins == 1 { // the admin attempt
			http.Error(w, `{"error":"no such user"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"token": "probe-token", "user": map[string]string{"id": "u2"}})
	})
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"products": []map[string]any{
			{"id": "live-1", "basePrice": 500.0, "currentHighestPrice": 740.0, "k": 2, "endTime": time.Now().Add(time.Minute).UnixMilli()},
		}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig()
	cache := pricecache.New(500)
	book := agent.NewBook()
	client := auction.NewClient(srv.URL, 5*time.Second, nopObserver{})

	plan, err := setup.Bootstrap(context.Background(), client, cfg, cache, book, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	require.Empty(t, plan.AdminToken)
	require.Len(t, plan.Products, 1)
	require.Equal(t, "live-1", plan.Products[0].ID)
	require.Equal(t, 2, plan.Products[0].K)
	require.InDelta(t, 740.0, cache.Get("live-1"), 1e-9)
}

func TestBootstrap_FailsWithNoProducts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "t", "user": map[string]string{"id": "u3"}})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"nope"}`, http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig()
	client := auction.NewClient(srv.URL, 5*time.Second, nopObserver{})

	_, err := setup.Bootstrap(context.Background(), client, cfg, pricecache.New(1000), agent.NewBook(), slog.New(slog.DiscardHandler))
	require.Error(t, err)
}
