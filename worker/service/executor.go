package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"imageForge/worker/artifact"
	"imageForge/worker/kafka"
	"imageForge/worker/repository"
)

type Provider interface {
	Generate(ctx context.Context, prompt string, width, height *int) ([]byte, error)
	Edit(ctx context.Context, prompt string, references [][]byte, width, height *int) ([]byte, error)
}

type ArtifactStore interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, key string, data []byte) (string, error)
}

type ReferenceFetcher interface {
	FetchAll(ctx context.Context, urls []string) [][]byte
}

type StatusSetter interface {
	Set(ctx context.Context, taskID string, status string) error
}

type Advancer interface {
	Advance(ctx context.Context, batchID, traceID string) error
}

// Result is what one execution attempt reports back. The executor converts
// every internal failure into a failed task plus a Result; it never leaves a
// claimed task non-terminal short of a crash, which the watchdog covers.
type Result struct {
	Success      bool
	Skipped      bool
	ResultURL    string
	ErrorMessage string
}

// Executor runs exactly one task to a terminal state, then advances the
// batch chain regardless of the outcome.
type Executor struct {
	repo      repository.Repository
	mirror    StatusSetter
	provider  Provider
	store     ArtifactStore
	fetcher   ReferenceFetcher
	scheduler Advancer
	logger    *zap.Logger
}

func NewExecutor(
	repo repository.Repository,
	mirror StatusSetter,
	provider Provider,
	store ArtifactStore,
	fetcher ReferenceFetcher,
	scheduler Advancer,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		repo:      repo,
		mirror:    mirror,
		provider:  provider,
		store:     store,
		fetcher:   fetcher,
		scheduler: scheduler,
		logger:    logger,
	}
}

func (e *Executor) Execute(ctx context.Context, msg *kafka.DispatchMessage) Result {
	logger := e.logger.With(
		zap.String("trace_id", msg.TraceID),
		zap.String("task_id", msg.TaskID),
		zap.String("batch_id", msg.BatchID),
	)

	claimed, err := e.repo.ClaimTask(ctx, msg.TaskID)
	if err != nil {
		// Nothing was written; the dispatch will be retried by the watchdog.
		logger.Error("Failed to claim task", zap.Error(err))
		return Result{ErrorMessage: fmt.Sprintf("claim task: %v", err)}
	}
	if !claimed {
		// Already terminal or mid-flight under another invocation.
		logger.Info("Claim lost, skipping execution")
		return Result{Skipped: true}
	}

	e.setMirror(ctx, logger, msg.TaskID, "processing")

	task, err := e.repo.GetTask(ctx, msg.TaskID)
	if err != nil {
		return e.failTask(ctx, logger, msg, fmt.Sprintf("fetch task: %v", err))
	}

	references := e.fetcher.FetchAll(ctx, task.ReferenceURLs)
	if missing := len(task.ReferenceURLs) - len(references); missing > 0 {
		logger.Warn("Proceeding without some reference images",
			zap.Int("missing", missing),
			zap.Int("fetched", len(references)),
		)
	}

	var raw []byte
	if len(references) > 0 {
		raw, err = e.provider.Edit(ctx, task.Prompt, references, task.TargetWidth, task.TargetHeight)
	} else {
		raw, err = e.provider.Generate(ctx, task.Prompt, task.TargetWidth, task.TargetHeight)
	}
	if err != nil {
		return e.failTask(ctx, logger, msg, fmt.Sprintf("generation failed: %v", err))
	}

	encoded, err := artifact.Normalize(raw, task.TargetWidth, task.TargetHeight)
	if err != nil {
		return e.failTask(ctx, logger, msg, fmt.Sprintf("artifact processing failed: %v", err))
	}

	if err := e.store.EnsureBucket(ctx); err != nil {
		return e.failTask(ctx, logger, msg, fmt.Sprintf("storage unavailable: %v", err))
	}

	key := fmt.Sprintf("%s/%s/%d.png", task.OwnerID, task.BatchID, task.BatchIndex)
	resultURL, err := e.store.Upload(ctx, key, encoded)
	if err != nil {
		return e.failTask(ctx, logger, msg, fmt.Sprintf("artifact upload failed: %v", err))
	}

	if err := e.repo.CompleteTask(ctx, msg.TaskID, resultURL); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Something else already moved the task to a terminal state,
			// most likely a watchdog timeout. The terminal state stands.
			logger.Warn("Task no longer processing, completion dropped")
			e.advance(ctx, logger, msg)
			return Result{Skipped: true}
		}
		logger.Error("Failed to record completion", zap.Error(err))
		e.advance(ctx, logger, msg)
		return Result{ErrorMessage: fmt.Sprintf("record completion: %v", err)}
	}

	e.setMirror(ctx, logger, msg.TaskID, "completed")
	logger.Info("Task completed", zap.String("result_url", resultURL))

	e.advance(ctx, logger, msg)
	return Result{Success: true, ResultURL: resultURL}
}

// failTask marks the task failed and still advances the chain, so one bad
// task never halts the rest of the batch.
func (e *Executor) failTask(ctx context.Context, logger *zap.Logger, msg *kafka.DispatchMessage, message string) Result {
	logger.Error("Task failed", zap.String("reason", message))

	if err := e.repo.FailTask(ctx, msg.TaskID, message); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			logger.Warn("Task no longer processing, failure dropped")
		} else {
			logger.Error("Failed to record task failure", zap.Error(err))
		}
	} else {
		e.setMirror(ctx, logger, msg.TaskID, "failed")
	}

	e.advance(ctx, logger, msg)
	return Result{ErrorMessage: message}
}

func (e *Executor) setMirror(ctx context.Context, logger *zap.Logger, taskID, status string) {
	if err := e.mirror.Set(ctx, taskID, status); err != nil {
		logger.Warn("Failed to update status mirror",
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

func (e *Executor) advance(ctx context.Context, logger *zap.Logger, msg *kafka.DispatchMessage) {
	if err := e.scheduler.Advance(ctx, msg.BatchID, msg.TraceID); err != nil {
		// A dropped advance strands the rest of the batch in queued; the
		// watchdog re-dispatches those after the stall timeout.
		logger.Error("Failed to advance batch chain", zap.Error(err))
	}
}
