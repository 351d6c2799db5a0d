package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"imageForge/worker/kafka"
	"imageForge/worker/repository"
)

// Scheduler advances a batch one task at a time. After any task reaches a
// terminal state it looks up the lowest-index queued task of the same batch
// and dispatches it. It never mutates task rows; claiming is the executor's
// job.
type Scheduler struct {
	repo     repository.Repository
	producer kafka.Producer
	topic    string
	logger   *zap.Logger
}

func NewScheduler(repo repository.Repository, producer kafka.Producer, topic string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		repo:     repo,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

func (s *Scheduler) Advance(ctx context.Context, batchID, traceID string) error {
	nextID, err := s.repo.NextQueuedTaskID(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			// No eligible task left; batch status is derived, nothing to mark.
			s.logger.Info("Batch chain complete",
				zap.String("trace_id", traceID),
				zap.String("batch_id", batchID),
			)
			return nil
		}
		return fmt.Errorf("next queued task: %w", err)
	}

	msg := &kafka.DispatchMessage{
		TaskID:  nextID,
		BatchID: batchID,
		TraceID: traceID,
	}
	if err := s.producer.SendDispatch(ctx, s.topic, msg); err != nil {
		return fmt.Errorf("dispatch next task: %w", err)
	}

	s.logger.Info("Dispatched next task in batch",
		zap.String("trace_id", traceID),
		zap.String("batch_id", batchID),
		zap.String("task_id", nextID),
	)

	return nil
}
