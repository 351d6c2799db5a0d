package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	// ErrStatusConflict means a conditional update matched no row: the task
	// moved to another status between read and write.
	ErrStatusConflict = errors.New("task status conflict")
)

// Task is the worker's view of one unit of work.
type Task struct {
	ID            string
	BatchID       string
	BatchIndex    int
	OwnerID       string
	TraceID       string
	Prompt        string
	ReferenceURLs []string
	TargetWidth   *int
	TargetHeight  *int
	Status        string
}

type Repository interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	ClaimTask(ctx context.Context, id string) (bool, error)
	CompleteTask(ctx context.Context, id string, resultURL string) error
	FailTask(ctx context.Context, id string, errorMessage string) error
	NextQueuedTaskID(ctx context.Context, batchID string) (string, error)
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetTask(ctx context.Context, id string) (*Task, error) {
	query := `
		SELECT id, batch_id, batch_index, owner_id, trace_id, prompt, reference_urls, target_width, target_height, status
		FROM tasks
		WHERE id = $1
	`

	var task Task
	err := r.db.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.BatchID,
		&task.BatchIndex,
		&task.OwnerID,
		&task.TraceID,
		&task.Prompt,
		&task.ReferenceURLs,
		&task.TargetWidth,
		&task.TargetHeight,
		&task.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return &task, nil
}

// ClaimTask is the queued -> processing transition. It is conditional on
// the queued status, so of two dispatchers racing for the same task exactly
// one wins; the loser sees false and skips.
func (r *PostgresRepo) ClaimTask(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() > 0, nil
}

func (r *PostgresRepo) CompleteTask(ctx context.Context, id string, resultURL string) error {
	query := `
		UPDATE tasks
		SET status = 'completed', result_url = $2, error_message = '', updated_at = NOW(), completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	result, err := r.db.Exec(ctx, query, id, resultURL)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	return nil
}

func (r *PostgresRepo) FailTask(ctx context.Context, id string, errorMessage string) error {
	query := `
		UPDATE tasks
		SET status = 'failed', error_message = $2, updated_at = NOW(), completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	result, err := r.db.Exec(ctx, query, id, errorMessage)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	return nil
}

// NextQueuedTaskID returns the lowest-index queued task of the batch, or
// ErrTaskNotFound when no eligible task remains.
func (r *PostgresRepo) NextQueuedTaskID(ctx context.Context, batchID string) (string, error) {
	query := `
		SELECT id
		FROM tasks
		WHERE batch_id = $1 AND status = 'queued'
		ORDER BY batch_index ASC
		LIMIT 1
	`

	var id string
	err := r.db.QueryRow(ctx, query, batchID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTaskNotFound
		}
		return "", err
	}

	return id, nil
}
