package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"imageForge/api/dto"
	"imageForge/api/kafka"
	"imageForge/api/models"
	"imageForge/api/repository"
)

// StallTimeout is how long a non-terminal task may sit without an
// updated_at refresh before the watchdog treats it as stalled.
const StallTimeout = 15 * time.Minute

const (
	ActionFailed    = "failed"
	ActionRestarted = "restarted"
	ActionNone      = "none"
	ActionError     = "error"
)

// StatusMirror is the denormalized status record updated alongside the task
// row. Mirror failures are logged, never propagated.
type StatusMirror interface {
	Set(ctx context.Context, taskID string, status models.TaskStatus) error
}

// Watchdog detects tasks that stopped making forward progress. Stalled
// processing tasks are failed out; stalled queued tasks are re-dispatched on
// the theory that their chain trigger was dropped. The worker's claim update
// keeps a re-dispatch of a task that is actually mid-flight from running it
// twice.
type Watchdog struct {
	repo     repository.Repository
	mirror   StatusMirror
	producer kafka.Producer
	topic    string
	logger   *zap.Logger
	now      func() time.Time
}

func NewWatchdog(repo repository.Repository, mirror StatusMirror, producer kafka.Producer, topic string, logger *zap.Logger) *Watchdog {
	return &Watchdog{
		repo:     repo,
		mirror:   mirror,
		producer: producer,
		topic:    topic,
		logger:   logger,
		now:      time.Now,
	}
}

// Scan checks one batch (req.BatchID set) or every non-terminal task older
// than the timeout. Remediation of each task is independent; one failure
// never aborts the rest of the scan.
func (w *Watchdog) Scan(ctx context.Context, req *dto.WatchdogRequest) (*dto.WatchdogResponse, error) {
	now := w.now()

	var tasks []models.Task
	var err error
	if req.BatchID != "" {
		tasks, err = w.repo.ListBatchTasks(ctx, req.BatchID)
	} else {
		tasks, err = w.repo.ListStalledTasks(ctx, now.Add(-StallTimeout))
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	resp := &dto.WatchdogResponse{Details: make([]dto.WatchdogDetail, 0, len(tasks))}
	for _, task := range tasks {
		resp.TasksChecked++
		detail := w.checkTask(ctx, now, task)
		switch detail.Action {
		case ActionFailed:
			resp.TasksFailed++
		case ActionRestarted:
			resp.TasksRestarted++
		}
		resp.Details = append(resp.Details, detail)
	}

	w.logger.Info("Watchdog scan completed",
		zap.String("batch_id", req.BatchID),
		zap.Int("checked", resp.TasksChecked),
		zap.Int("restarted", resp.TasksRestarted),
		zap.Int("failed", resp.TasksFailed),
	)

	return resp, nil
}

func (w *Watchdog) checkTask(ctx context.Context, now time.Time, task models.Task) dto.WatchdogDetail {
	detail := dto.WatchdogDetail{
		TaskID:  task.ID,
		BatchID: task.BatchID,
		Status:  string(task.Status),
		Action:  ActionNone,
	}

	age := now.Sub(task.UpdatedAt)
	if task.Status.IsTerminal() || age <= StallTimeout {
		return detail
	}

	switch task.Status {
	case models.StatusProcessing:
		message := fmt.Sprintf("stalled in processing for %s, failed by watchdog", age.Round(time.Second))
		failed, err := w.repo.FailTaskIfProcessing(ctx, task.ID, message)
		if err != nil {
			w.logger.Error("Failed to fail out stalled task",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
			detail.Action = ActionError
			detail.Note = err.Error()
			return detail
		}
		if !failed {
			// Reached a terminal state between selection and remediation.
			detail.Note = "already terminal"
			return detail
		}
		if err := w.mirror.Set(ctx, task.ID, models.StatusFailed); err != nil {
			w.logger.Warn("Failed to update status mirror",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
		}
		detail.Action = ActionFailed
		detail.Note = message

	case models.StatusQueued:
		msg := &kafka.DispatchMessage{
			TaskID:  task.ID,
			BatchID: task.BatchID,
			TraceID: task.TraceID,
		}
		if err := w.producer.SendDispatch(ctx, w.topic, msg); err != nil {
			w.logger.Error("Failed to re-dispatch stalled task",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
			detail.Action = ActionError
			detail.Note = err.Error()
			return detail
		}
		detail.Action = ActionRestarted
		detail.Note = fmt.Sprintf("queued for %s, re-dispatched", age.Round(time.Second))
	}

	return detail
}
