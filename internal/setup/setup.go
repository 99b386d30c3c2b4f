// Package setup prepares the auction service before load starts: an
// admin account, a batch of freshly timed products, and the initial
// shared product view.
package setup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bidstorm/internal/agent"
	"bidstorm/internal/auction"
	"bidstorm/internal/config"
	"bidstorm/internal/pricecache"
	"bidstorm/internal/verify"
)

// Plan describes what Bootstrap created or discovered.
type Plan struct {
	Products   []verify.Product
	AdminToken string
}

// Bootstrap provisions the run. It registers an admin, creates
// cfg.Run.Products auctions whose bidding window covers the whole run,
// and seeds the shared cache and book. If admin provisioning is
// refused by the service it falls back to adopting whatever products a
// probe user can already see.
func Bootstrap(ctx context.Context, client *auction.Client, cfg *config.Config, cache *pricecache.Cache, book *agent.Book, log *slog.Logger) (*Plan, error) {
	now := time.Now()
	username := fmt.Sprintf("admin_%d", now.UnixNano())
	creds := auction.Credentials{Username: username, Password: "admin123", Role: "admin"}

	if _, err := client.Register(ctx, creds); err != nil {
		log.Warn("admin registration refused, trying login anyway", "err", err)
	}
	auth, err := client.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		log.Warn("admin login failed, adopting existing products", "err", err)
		return adoptExisting(ctx, client, cache, book, log)
	}

	regBid := cfg.Registration() + cfg.Bidding() + 10*time.Second
	start := now.Add(2 * time.Second)
	end := now.Add(regBid)

	var products []auction.Product
	for i := 0; i < cfg.Run.Products; i++ {
		p := auction.NewProduct{
			Title:       fmt.Sprintf("Load Item %d", i+1),
			Description: "harness-generated auction",
			BasePrice:   cfg.Run.BasePrice + 100*float64(i),
			K:           cfg.Run.K,
			StartTime:   start.UnixMilli(),
			EndTime:     end.UnixMilli(),
			Alpha:       1.0,
			Beta:        0.5,
			Gamma:       0.3,
		}
		id, err := client.CreateProduct(ctx, auth.Token, p)
		if err != nil {
			return nil, fmt.Errorf("creating product %d: %w", i+1, err)
		}
		products = append(products, auction.Product{
			ID:        id,
			Title:     p.Title,
			BasePrice: p.BasePrice,
			K:         p.K,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
		})
		log.Info("created product", "id", id, "base_price", p.BasePrice, "k", p.K)
	}

	seed(products, cache, book)
	return &Plan{Products: toVerify(products), AdminToken: auth.Token}, nil
}

// adoptExisting registers a throwaway user and takes over whatever
// products the service already lists.
func adoptExisting(ctx context.Context, client *auction.Client, cache *pricecache.Cache, book *agent.Book, log *slog.Logger) (*Plan, error) {
	creds := auction.Credentials{
		Username: fmt.Sprintf("probe_%d", time.Now().UnixNano()),
		Password: "probe123",
		Role:     "user",
	}
	if _, err := client.Register(ctx, creds); err != nil {
		return nil, fmt.Errorf("probe registration: %w", err)
	}
	auth, err := client.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("probe login: %w", err)
	}

	products, err := client.ListProducts(ctx, auth.Token)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no products available and admin provisioning failed")
	}
	log.Info("adopted existing products", "count", len(products))

	seed(products, cache, book)
	return &Plan{Products: toVerify(products)}, nil
}

func seed(products []auction.Product, cache *pricecache.Cache, book *agent.Book) {
	book.Update(products)
	for _, p := range products {
		price := p.CurrentHighestPrice
		if price <= 0 {
			price = p.BasePrice
		}
		cache.Put(p.ID, price)
	}
}

func toVerify(products []auction.Product) []verify.Product {
	out := make([]verify.Product, 0, len(products))
	for _, p := range products {
		out = append(out, verify.Product{ID: p.ID, K: p.K})
	}
	return out
}
