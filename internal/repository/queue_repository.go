package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sma-monitoring-api/pkg/errors"
)

// QueueRepository reads job counts for one BullMQ-style queue stored in Redis.
// Waiting and active jobs live in lists; completed, failed and delayed jobs in sorted sets.
type QueueRepository struct {
	client *redis.Client
	prefix string
	name   string
}

// NewQueueRepository constructs a queue repository for prefix:name keys.
func NewQueueRepository(client *redis.Client, prefix, name string) *QueueRepository {
	if prefix == "" {
		prefix = "bull"
	}
	return &QueueRepository{client: client, prefix: prefix, name: name}
}

func (r *QueueRepository) key(state string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, r.name, state)
}

// WaitingCount returns the number of jobs waiting to be picked up.
func (r *QueueRepository) WaitingCount(ctx context.Context) (int64, error) {
	return r.listLen(ctx, "wait")
}

// ActiveCount returns the number of jobs currently being processed.
func (r *QueueRepository) ActiveCount(ctx context.Context) (int64, error) {
	return r.listLen(ctx, "active")
}

// CompletedCount returns the number of retained completed jobs.
func (r *QueueRepository) CompletedCount(ctx context.Context) (int64, error) {
	return r.setCard(ctx, "completed")
}

// FailedCount returns the number of retained failed jobs.
func (r *QueueRepository) FailedCount(ctx context.Context) (int64, error) {
	return r.setCard(ctx, "failed")
}

// DelayedCount returns the number of jobs scheduled for later execution.
func (r *QueueRepository) DelayedCount(ctx context.Context) (int64, error) {
	return r.setCard(ctx, "delayed")
}

func (r *QueueRepository) listLen(ctx context.Context, state string) (int64, error) {
	if r.client == nil {
		return 0, appErrors.ErrQueueUnavailable
	}
	n, err := r.client.LLen(ctx, r.key(state)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen %s: %w", r.key(state), err)
	}
	return n, nil
}

func (r *QueueRepository) setCard(ctx context.Context, state string) (int64, error) {
	if r.client == nil {
		return 0, appErrors.ErrQueueUnavailable
	}
	n, err := r.client.ZCard(ctx, r.key(state)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcard %s: %w", r.key(state), err)
	}
	return n, nil
}
