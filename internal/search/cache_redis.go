package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"torrentsearch/searchd/internal/domain"
)

const redisCacheKeyPrefix = "torrentsearch:round:"

// RedisCacheBackend is the shared second tier of the round cache. Failures
// are logged and treated as misses so Redis being down never breaks search.
type RedisCacheBackend struct {
	client  *redis.Client
	logger  *slog.Logger
	timeout time.Duration
}

func NewRedisCacheBackend(client *redis.Client, logger *slog.Logger) *RedisCacheBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCacheBackend{
		client:  client,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

func (b *RedisCacheBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisCacheBackend) Get(key string) (domain.SearchResults, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	raw, err := b.client.Get(ctx, redisCacheKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			b.logger.Warn("redis cache get failed", slog.String("error", err.Error()))
		}
		return domain.SearchResults{}, false
	}

	var results domain.SearchResults
	if err := json.Unmarshal(raw, &results); err != nil {
		b.logger.Warn("redis cache entry corrupt, dropping", slog.String("error", err.Error()))
		b.Delete(key)
		return domain.SearchResults{}, false
	}
	return results, true
}

func (b *RedisCacheBackend) Set(key string, results domain.SearchResults, ttl time.Duration) {
	raw, err := json.Marshal(results)
	if err != nil {
		b.logger.Warn("redis cache marshal failed", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if err := b.client.Set(ctx, redisCacheKeyPrefix+key, raw, ttl).Err(); err != nil {
		b.logger.Warn("redis cache set failed", slog.String("error", err.Error()))
	}
}

func (b *RedisCacheBackend) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if err := b.client.Del(ctx, redisCacheKeyPrefix+key).Err(); err != nil {
		b.logger.Warn("redis cache delete failed", slog.String("error", err.Error()))
	}
}
