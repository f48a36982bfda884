package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	updateKeyPrefix = "tg_update:"
	defaultTTL      = time.Hour
)

// Redis remembers which webhook updates were already handled so that a
// redelivered update does not issue a second batch.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{Client: client, TTL: ttl}
}

// Connect dials addr and verifies the server answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// MarkUpdateSeen records updateID and reports whether this is its first
// delivery.
func (r *Redis) MarkUpdateSeen(ctx context.Context, updateID int64) (bool, error) {
	key := fmt.Sprintf("%s%d", updateKeyPrefix, updateID)
	return r.Client.SetNX(ctx, key, time.Now().Unix(), r.TTL).Result()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
