package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"imageForge/api/database"
	"imageForge/api/models"
)

const taskColumns = `
	id, batch_id, batch_index, owner_id, trace_id, prompt, reference_urls,
	target_width, target_height, status, result_url, error_message,
	created_at, updated_at, completed_at
`

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateBatchTasks(ctx context.Context, tasks []*models.Task) error {
	query := `
		INSERT INTO tasks (id, batch_id, batch_index, owner_id, trace_id, prompt, reference_urls, target_width, target_height, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	batch := &pgx.Batch{}
	for _, task := range tasks {
		batch.Queue(query,
			task.ID,
			task.BatchID,
			task.BatchIndex,
			task.OwnerID,
			task.TraceID,
			task.Prompt,
			task.ReferenceURLs,
			task.TargetWidth,
			task.TargetHeight,
			task.Status,
		)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range tasks {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

func (r *PostgresRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return task, nil
}

func (r *PostgresRepo) GetBatchCounts(ctx context.Context, batchID string) (models.BatchCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM tasks
		WHERE batch_id = $1
	`

	var counts models.BatchCounts
	err := r.db.Pool.QueryRow(ctx, query, batchID).Scan(
		&counts.Total,
		&counts.Completed,
		&counts.Failed,
	)
	if err != nil {
		return models.BatchCounts{}, err
	}

	return counts, nil
}

func (r *PostgresRepo) ListBatchTasks(ctx context.Context, batchID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE batch_id = $1 ORDER BY batch_index ASC`

	rows, err := r.db.Pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (r *PostgresRepo) ListStalledTasks(ctx context.Context, cutoff time.Time) ([]models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status IN ('queued', 'processing') AND updated_at < $1
		ORDER BY updated_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

// FailTaskIfProcessing is conditional on the current status so a task that
// completed between selection and remediation is left untouched.
func (r *PostgresRepo) FailTaskIfProcessing(ctx context.Context, id string, errorMessage string) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'failed', error_message = $2, updated_at = NOW(), completed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	result, err := r.db.Pool.Exec(ctx, query, id, errorMessage)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	err := row.Scan(
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
		&task.ResultURL,
		&task.ErrorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func collectTasks(rows pgx.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}
