package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"motorhome-booking-backend/internal/logger"
)

const keyPrefix = "booking:webhook:"

type redisStore struct {
	client *redis.Client
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	logger.Info("Connected to Redis", "addr", addr)
	return client, nil
}

func NewRedisStore(client *redis.Client) IdempotencyStore {
	return &redisStore{client: client}
}

func (s *redisStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	logger.ExternalServiceCall("redis", "SETNX", "key", key)
	ok, err := s.client.SetNX(ctx, keyPrefix+key, time.Now().Unix(), ttl).Result()
	logger.ExternalServiceResult("redis", "SETNX", err, "new", ok)
	return ok, err
}

func (s *redisStore) Forget(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
