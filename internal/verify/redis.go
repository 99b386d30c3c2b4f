package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisRankBoard reads the service's per-product ranking zsets. Key
// layout follows the backend: auction:{id}:rank holds user→score,
// auction:{id}:bids holds the serialized bid details.
type RedisRankBoard struct {
	rdb *redis.Client
}

func OpenRedis(ctx context.Context, addr, password string, db int) (*RedisRankBoard, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisRankBoard{rdb: rdb}, nil
}

func (r *RedisRankBoard) Close() error {
	return r.rdb.Close()
}

func rankKey(productID string) string { return "auction:" + productID + ":rank" }
func bidsKey(productID string) string { return "auction:" + productID + ":bids" }

func (r *RedisRankBoard) Cardinality(ctx context.Context, productID string) (int64, error) {
	n, err := r.rdb.ZCard(ctx, rankKey(productID)).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard %s: %w", rankKey(productID), err)
	}
	return n, nil
}

func (r *RedisRankBoard) TopK(ctx context.Context, productID string, k int) ([]Member, error) {
	if k <= 0 {
		return nil, nil
	}
	zs, err := r.rdb.ZRevRangeWithScores(ctx, rankKey(productID), 0, int64(k-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange %s: %w", rankKey(productID), err)
	}
	members := make([]Member, 0, len(zs))
	for _, z := range zs {
		id, _ := z.Member.(string)
		members = append(members, Member{ID: id, Score: z.Score})
	}
	return members, nil
}

func (r *RedisRankBoard) BidDetail(ctx context.Context, productID, userID string) (string, error) {
	detail, err := r.rdb.HGet(ctx, bidsKey(productID), userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("hget %s %s: %w", bidsKey(productID), userID, err)
	}
	return detail, nil
}
