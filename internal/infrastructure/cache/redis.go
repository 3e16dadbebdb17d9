package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	pkgCache "github.com/mahmoudtohamy2025/rappit-core/pkg/cache"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

// RedisCache implements pkg/cache.Cache over a single shared Redis instance.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(host, password string, db int) pkgCache.Cache {
	client := redis.NewClient(&redis.Options{
		Addr:         host,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &RedisCache{client: client}
}

// NewRedisCacheFromClient wraps an existing client (tests use miniredis here).
func NewRedisCacheFromClient(client *redis.Client) pkgCache.Cache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Connect(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get reads and unmarshals a JSON value. Backend errors are treated as a
// miss so a cache outage never fails the caller.
func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Warn("redis get failed, treating as miss", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
		return false, nil
	}

	if err := json.Unmarshal(val, dest); err != nil {
		// Corrupted or stale-schema payload; drop it.
		_ = r.client.Del(ctx, key)
		return false, nil
	}

	return true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := r.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		logger.Warn("redis set failed", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
		return nil
	}

	return nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("redis delete failed", map[string]interface{}{
			"keys": keys, "error": err.Error(),
		})
		return nil
	}

	return nil
}

// GetString reads a raw string value; backend errors count as a miss.
func (r *RedisCache) GetString(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		logger.Warn("redis get failed, treating as miss", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
		return "", false, nil
	}
	return val, true, nil
}

func (r *RedisCache) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Warn("redis set failed", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
		return nil
	}
	return nil
}

// StrictGetDel atomically reads and deletes a key. Unlike Get, a backend
// failure surfaces as an error: single-use token validation must fail closed.
func (r *RedisCache) StrictGetDel(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis getdel failed: %w", err)
	}
	return val, true, nil
}

// IncrWithTTL atomically increments a counter and sets the TTL on first
// touch, so the window starts at the first hit.
func (r *RedisCache) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr failed: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, fmt.Errorf("redis expire failed: %w", err)
		}
	}

	return count, nil
}

func (r *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key).Result()
}
