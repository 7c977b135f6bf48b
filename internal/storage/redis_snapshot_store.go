package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps snapshots as plain string values with a TTL.
// Every save refreshes the expiry.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func (s *RedisSnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		logger.Error("Failed to load cart snapshot from redis", err, map[string]interface{}{
			"key": key,
		})
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	return payload, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, key string, payload []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		logger.Error("Failed to save cart snapshot to redis", err, map[string]interface{}{
			"key": key,
		})
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	logger.Debug("Cart snapshot saved", map[string]interface{}{
		"key":   key,
		"bytes": len(payload),
	})
	return nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}
