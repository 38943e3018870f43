package queue

import (
	"context"
	"encoding/json"
	"time"

	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type Producer struct {
	client *redis.Client
	cfg    *config.Config
	now    func() time.Time
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		client: redisClient.Client(),
		cfg:    cfg,
		now:    time.Now,
	}
}

// EnqueueSyncJob assigns the job an id and queue time, then pushes it onto
// the sync queue. The returned job is what the worker will receive.
func (p *Producer) EnqueueSyncJob(ctx context.Context, job model.SyncJob) (model.SyncJob, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.QueuedAt = p.now().UTC()

	data, err := json.Marshal(job)
	if err != nil {
		return job, err
	}

	return job, p.client.LPush(ctx, p.cfg.Redis.SyncQueue, data).Err()
}
