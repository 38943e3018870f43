package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/pkg/errors"

	"github.com/go-redis/redis/v8"
)

// ResultStore keeps the latest summary of each sync job under
// result_prefix+id for result_ttl.
type ResultStore struct {
	client *redis.Client
	cfg    *config.Config
}

func NewResultStore(redisClient *RedisClient, cfg *config.Config) *ResultStore {
	return &ResultStore{
		client: redisClient.Client(),
		cfg:    cfg,
	}
}

func (s *ResultStore) key(jobID string) string {
	return s.cfg.Redis.ResultPrefix + jobID
}

func (s *ResultStore) Save(ctx context.Context, summary model.SyncSummary) error {
	if summary.JobID == "" {
		return fmt.Errorf("sync summary has no job id")
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.key(summary.JobID), data, s.cfg.Redis.ResultTTL).Err()
}

func (s *ResultStore) Get(ctx context.Context, jobID string) (*model.SyncSummary, error) {
	data, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	var summary model.SyncSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode sync summary %s: %w", jobID, err)
	}
	return &summary, nil
}
