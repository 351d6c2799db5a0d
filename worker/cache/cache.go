package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusTTL = 30 * time.Minute

type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

func (c *StatusCache) Set(ctx context.Context, taskID string, status string) error {
	return c.client.Set(ctx, "task:status:"+taskID, status, statusTTL).Err()
}
