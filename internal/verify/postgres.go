package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

// PostgresBidLog reads the service's bid_logs and products tables.
// Strictly read-only: the harness never writes to the store it audits.
type PostgresBidLog struct {
	db *sqlx.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresBidLog, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &PostgresBidLog{db: db}, nil
}

func (p *PostgresBidLog) Close() error {
	return p.db.Close()
}

func (p *PostgresBidLog) DistinctBidders(ctx context.Context, productID string) (int, error) {
	var count int
	err := p.db.GetContext(ctx, &count,
		`SELECT COUNT(DISTINCT user_id) FROM bid_logs WHERE product_id = $1`, productID)
	if err != nil {
		return 0, fmt.Errorf("distinct bidders for %s: %w", productID, err)
	}
	return count, nil
}

func (p *PostgresBidLog) TotalBids(ctx context.Context) (int, error) {
	var count int
	if err := p.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bid_logs`); err != nil {
		return 0, fmt.Errorf("total bids: %w", err)
	}
	return count, nil
}

func (p *PostgresBidLog) Products(ctx context.Context) ([]Product, error) {
	var rows []struct {
		ID string `db:"id"`
		K  int    `db:"k"`
	}
	if err := p.db.SelectContext(ctx, &rows, `SELECT id, k FROM products`); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products := make([]Product, len(rows))
	for i, r := range rows {
		products[i] = Product{ID: r.ID, K: r.K}
	}
	return products, nil
}
