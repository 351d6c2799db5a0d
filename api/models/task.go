package models

import (
	"time"
)

type TaskStatus string

const (
	StatusQueued     TaskStatus = "queued"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether a task can never transition again.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

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
	Status        TaskStatus
	ResultURL     string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// BatchCounts is the derived batch status. A batch is never stored as its
// own row; it is the set of tasks sharing a batch_id.
type BatchCounts struct {
	Total     int
	Completed int
	Failed    int
}

func (c BatchCounts) Pending() int {
	return c.Total - c.Completed - c.Failed
}

func (c BatchCounts) Done() bool {
	return c.Total > 0 && c.Pending() == 0
}
