package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"imageForge/api/dto"
	"imageForge/api/kafka"
	"imageForge/api/models"
	"imageForge/api/repository"
)

type BatchService struct {
	repo     repository.Repository
	mirror   StatusMirror
	producer kafka.Producer
	topic    string
}

func NewBatchService(repo repository.Repository, mirror StatusMirror, producer kafka.Producer, topic string) *BatchService {
	return &BatchService{
		repo:     repo,
		mirror:   mirror,
		producer: producer,
		topic:    topic,
	}
}

// CreateBatch fans one request out into N queued tasks and dispatches only
// the first one. Each finished task dispatches its successor, so at most one
// task per batch is in flight.
func (s *BatchService) CreateBatch(ctx context.Context, traceID string, req *dto.CreateBatchRequest) (*dto.BatchResponse, error) {
	if len(req.Variations) == 0 {
		return nil, dto.ErrEmptyBatch
	}
	for _, v := range req.Variations {
		if strings.TrimSpace(v.Prompt) == "" {
			return nil, dto.ErrEmptyPrompt
		}
	}

	batchID := uuid.New().String()
	tasks := make([]*models.Task, 0, len(req.Variations))
	for i, v := range req.Variations {
		tasks = append(tasks, &models.Task{
			ID:            uuid.New().String(),
			BatchID:       batchID,
			BatchIndex:    i,
			OwnerID:       req.OwnerID,
			TraceID:       traceID,
			Prompt:        v.Prompt,
			ReferenceURLs: req.ReferenceURLs,
			TargetWidth:   v.TargetWidth,
			TargetHeight:  v.TargetHeight,
			Status:        models.StatusQueued,
		})
	}

	if err := s.repo.CreateBatchTasks(ctx, tasks); err != nil {
		return nil, err
	}

	for _, task := range tasks {
		s.mirror.Set(ctx, task.ID, models.StatusQueued)
	}

	msg := &kafka.DispatchMessage{
		TaskID:  tasks[0].ID,
		BatchID: batchID,
		TraceID: traceID,
	}
	if err := s.producer.SendDispatch(ctx, s.topic, msg); err != nil {
		return nil, err
	}

	return &dto.BatchResponse{
		BatchID:   batchID,
		TraceID:   traceID,
		Total:     len(tasks),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// GetBatchStatus computes the batch's live status from the task store on
// every call. No caching here; callers that want caching do it themselves.
func (s *BatchService) GetBatchStatus(ctx context.Context, batchID string) (*dto.BatchStatusResponse, error) {
	counts, err := s.repo.GetBatchCounts(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if counts.Total == 0 {
		return nil, dto.ErrBatchNotFound
	}

	return &dto.BatchStatusResponse{
		BatchID:   batchID,
		Total:     counts.Total,
		Completed: counts.Completed,
		Failed:    counts.Failed,
		Pending:   counts.Pending(),
		Done:      counts.Done(),
	}, nil
}

func (s *BatchService) GetTask(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, dto.ErrTaskNotFound
		}
		return nil, err
	}

	return toTaskResponse(task), nil
}

func toTaskResponse(task *models.Task) *dto.TaskResponse {
	var completedAt *string
	if task.CompletedAt != nil {
		formatted := task.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &formatted
	}

	return &dto.TaskResponse{
		ID:           task.ID,
		BatchID:      task.BatchID,
		BatchIndex:   task.BatchIndex,
		Status:       string(task.Status),
		ResultURL:    task.ResultURL,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    task.CreatedAt.UTC().Format(time.RFC3339),
		CompletedAt:  completedAt,
	}
}
