package queue

import (
	"context"
	"fmt"
	"time"

	"classroom-photo-sync/internal/config"

	"github.com/go-redis/redis/v8"
)

const pingTimeout = 5 * time.Second

// RedisClient is the shared connection behind the producer, the consumer and
// the result store.
type RedisClient struct {
	client *redis.Client
	addr   string
}

func redisOptions(cfg *config.Config) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.PoolSize > 0 {
		opts.PoolSize = cfg.Redis.PoolSize
	}
	return opts
}

// NewRedisClient connects and pings once so a wrong address fails at startup.
func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	r := &RedisClient{
		client: redis.NewClient(redisOptions(cfg)),
		addr:   cfg.RedisAddr(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		r.client.Close()
		return nil, err
	}
	return r, nil
}

func (r *RedisClient) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis at %s: %w", r.addr, err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Client() *redis.Client {
	return r.client
}
