package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/bazaar-backend/config"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// ClaimStore marks keys as taken with SETNX so a follow-up delivered more
// than once is only acted on by the first caller.
type ClaimStore struct {
	rdb    redis.Cmdable
	prefix string
}

func NewClaimStore(rdb redis.Cmdable, prefix string) *ClaimStore {
	return &ClaimStore{rdb: rdb, prefix: prefix}
}

// Claim returns true when the key was free and is now held for ttl
func (s *ClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.prefix+key, "1", ttl).Result()
	if err != nil {
		logger.Error("Failed to claim key in Redis", err, map[string]interface{}{
			"key": key,
		})
		return false, err
	}
	return ok, nil
}

// Release frees a claim so that a failed attempt can be retried
func (s *ClaimStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		logger.Error("Failed to release key in Redis", err, map[string]interface{}{
			"key": key,
		})
		return err
	}
	return nil
}
