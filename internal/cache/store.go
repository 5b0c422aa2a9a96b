package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// PriceStore is an optional shared cache tier behind the in-process cache.
// Get's second return reports whether the symbol was present.
type PriceStore interface {
	Get(ctx context.Context, symbol string) (float64, bool, error)
	Set(ctx context.Context, symbol string, price float64, ttl time.Duration) error
}

const redisKeyPrefix = "slothfinance:price:"

// RedisPriceStore keeps prices in Redis so multiple processes can share one
// TTL window against the quote service.
type RedisPriceStore struct {
	client *redis.Client
}

// NewRedisPriceStore wraps an existing Redis client.
func NewRedisPriceStore(client *redis.Client) *RedisPriceStore {
	return &RedisPriceStore{client: client}
}

// DialRedis connects to Redis with the timeouts used across the project.
func DialRedis(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Get retrieves a cached price. Redis handles expiry itself, so a hit is
// always live.
func (s *RedisPriceStore) Get(ctx context.Context, symbol string) (float64, bool, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+symbol).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %s: %w", symbol, err)
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis value for %s: %w", symbol, err)
	}
	return price, true, nil
}

// Set stores a price with the given TTL.
func (s *RedisPriceStore) Set(ctx context.Context, symbol string, price float64, ttl time.Duration) error {
	val := strconv.FormatFloat(price, 'f', -1, 64)
	if err := s.client.Set(ctx, redisKeyPrefix+symbol, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", symbol, err)
	}
	return nil
}
