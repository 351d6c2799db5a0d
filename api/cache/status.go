package cache

import (
	"context"
	"fmt"
	"time"

	"imageForge/api/database"
	"imageForge/api/models"
)

const (
	statusKeyPrefix = "task:status:"
	statusTTL       = 30 * time.Minute
)

// StatusCache is the denormalized task-status mirror consumed by UI polling.
// It is best-effort: callers tolerate and log mirror failures, the tasks
// table stays authoritative.
type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

func (sc *StatusCache) Get(ctx context.Context, taskID string) (models.TaskStatus, error) {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, taskID)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		return "", err
	}

	return models.TaskStatus(data), nil
}

func (sc *StatusCache) Set(ctx context.Context, taskID string, status models.TaskStatus) error {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, taskID)
	return sc.cache.Set(ctx, key, string(status), statusTTL)
}

func (sc *StatusCache) Delete(ctx context.Context, taskID string) error {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, taskID)
	return sc.cache.Del(ctx, key)
}
