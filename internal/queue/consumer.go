package queue

import (
	"context"
	"time"

	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type Consumer struct {
	client      *redis.Client
	cfg         *config.Config
	pollTimeout time.Duration
	log         zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(redisClient *RedisClient, cfg *config.Config) *Consumer {
	return &Consumer{
		client:      redisClient.Client(),
		cfg:         cfg,
		pollTimeout: 5 * time.Second,
		log:         logger.Get(),
	}
}

// ConsumeSyncQueue hands sync messages to handler one at a time until ctx is
// cancelled. A message the handler rejects is moved to the dead-letter queue.
func (c *Consumer) ConsumeSyncQueue(ctx context.Context, handler MessageHandler) error {
	return c.consume(ctx, c.cfg.Redis.SyncQueue, handler)
}

func (c *Consumer) DeadLetterQueue() string {
	return c.cfg.Redis.SyncQueue + c.cfg.Redis.DLQSuffix
}

func (c *Consumer) consume(ctx context.Context, queueName string, handler MessageHandler) error {
	log := c.log.With().Str("queue", queueName).Logger()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.BRPop(ctx, c.pollTimeout, queueName).Result()
		if err != nil {
			if err == redis.Nil {
				continue // timeout, keep polling
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Failed to consume message")
			time.Sleep(time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		message := result[1]
		if err := handler(ctx, []byte(message)); err != nil {
			log.Error().Err(err).Msg("Failed to process message")
			dlqName := queueName + c.cfg.Redis.DLQSuffix
			// Shutdown must not lose a rejected message.
			if dlqErr := c.client.LPush(context.WithoutCancel(ctx), dlqName, message).Err(); dlqErr != nil {
				log.Error().Err(dlqErr).Str("dlq", dlqName).Msg("Failed to move message to DLQ")
			}
		}
	}
}
