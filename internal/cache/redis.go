package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"procure-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init connects to Redis. The cache degrades gracefully: if Redis is down
// the app runs without it and every lookup is a miss.
func Init(cfg *config.Config) {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[Cache] redis unavailable, running without cache: %v", err)
		client = nil
		return
	}
	log.Println("[Cache] redis connected")
}

// Get fetches a cached value. Returns false on miss or when the cache is
// unavailable.
func Get(ctx context.Context, key string) (string, bool) {
	if client == nil {
		return "", false
	}
	val, err := client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a value with a TTL. A dead cache is a no-op.
func Set(ctx context.Context, key, value string, ttl time.Duration) {
	if client == nil {
		return
	}
	if err := client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("[Cache] set %s failed: %v", key, err)
	}
}

// Delete removes keys, used for invalidation after writes.
func Delete(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[Cache] delete failed: %v", err)
	}
}

// Close shuts the client down.
func Close() {
	if client != nil {
		client.Close()
	}
}
