package repository

import (
	"context"
	"errors"
	"time"

	"imageForge/api/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
)

type Repository interface {
	CreateBatchTasks(ctx context.Context, tasks []*models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	GetBatchCounts(ctx context.Context, batchID string) (models.BatchCounts, error)
	ListBatchTasks(ctx context.Context, batchID string) ([]models.Task, error)
	ListStalledTasks(ctx context.Context, cutoff time.Time) ([]models.Task, error)
	FailTaskIfProcessing(ctx context.Context, id string, errorMessage string) (bool, error)
}
