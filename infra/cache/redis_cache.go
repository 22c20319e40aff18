package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"log/slog"

	"github.com/amirasaad/payproc/pkg/dto"
	"github.com/redis/go-redis/v9"
)

// RedisTransactionCache implements TransactionCache using Redis.
type RedisTransactionCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisTransactionCache creates a new RedisTransactionCache.
func NewRedisTransactionCache(
	addr, password string,
	db int,
	prefix string,
	logger *slog.Logger,
) *RedisTransactionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisTransactionCache{client: client, prefix: prefix, logger: logger}
}

// NewRedisTransactionCacheWithOptions creates a new RedisTransactionCache
// from redis.Options.
func NewRedisTransactionCacheWithOptions(
	opt *redis.Options,
	prefix string,
	logger *slog.Logger,
) *RedisTransactionCache {
	client := redis.NewClient(opt)
	return &RedisTransactionCache{client: client, prefix: prefix, logger: logger}
}

func (r *RedisTransactionCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisTransactionCache) Get(key string) (*dto.TransactionRead, error) {
	ctx := context.Background()
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis cache miss", "key", key)
		return nil, nil // cache miss
	}
	if err != nil {
		r.logger.Error("Redis cache get error", "key", key, "error", err)
		return nil, err
	}
	var txn dto.TransactionRead
	if err := json.Unmarshal([]byte(val), &txn); err != nil {
		r.logger.Error("Redis cache unmarshal error", "key", key, "error", err)
		return nil, err
	}
	r.logger.Debug("Redis cache hit", "key", key, "status", txn.Status)
	return &txn, nil
}

func (r *RedisTransactionCache) Set(
	key string,
	txn *dto.TransactionRead,
	ttl time.Duration,
) error {
	ctx := context.Background()
	data, err := json.Marshal(txn)
	if err != nil {
		r.logger.Error("Redis cache marshal error", "key", key, "error", err)
		return err
	}
	err = r.client.Set(ctx, r.key(key), data, ttl).Err()
	if err != nil {
		r.logger.Error("Redis cache set error", "key", key, "error", err)
		return err
	}
	r.logger.Debug("Redis cache set", "key", key, "status", txn.Status, "ttl", ttl)
	return nil
}

func (r *RedisTransactionCache) Delete(key string) error {
	ctx := context.Background()
	err := r.client.Del(ctx, r.key(key)).Err()
	if err != nil {
		r.logger.Error("Redis cache delete error", "key", key, "error", err)
		return err
	}
	r.logger.Debug("Redis cache delete", "key", key)
	return nil
}
