package dto

import "errors"

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrBatchNotFound = errors.New("batch not found")
	ErrEmptyBatch    = errors.New("batch must contain at least one variation")
	ErrEmptyPrompt   = errors.New("variation prompt must not be empty")
)

type BatchVariation struct {
	Prompt       string `json:"prompt"`
	TargetWidth  *int   `json:"target_width,omitempty"`
	TargetHeight *int   `json:"target_height,omitempty"`
}

type CreateBatchRequest struct {
	OwnerID       string           `json:"owner_id"`
	Variations    []BatchVariation `json:"variations"`
	ReferenceURLs []string         `json:"reference_urls,omitempty"`
}

type BatchResponse struct {
	BatchID   string `json:"batch_id"`
	TraceID   string `json:"trace_id"`
	Total     int    `json:"total"`
	CreatedAt string `json:"created_at"`
}

type BatchStatusResponse struct {
	BatchID   string `json:"batch_id"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Pending   int    `json:"pending"`
	Done      bool   `json:"done"`
}

type TaskResponse struct {
	ID           string  `json:"id"`
	BatchID      string  `json:"batch_id"`
	BatchIndex   int     `json:"batch_index"`
	Status       string  `json:"status"`
	ResultURL    string  `json:"result_url,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

type WatchdogRequest struct {
	BatchID  string `json:"batch_id,omitempty"`
	CheckAll bool   `json:"check_all,omitempty"`
}

type WatchdogDetail struct {
	TaskID  string `json:"task_id"`
	BatchID string `json:"batch_id"`
	Status  string `json:"status"`
	Action  string `json:"action"`
	Note    string `json:"note,omitempty"`
}

type WatchdogResponse struct {
	TasksChecked   int              `json:"tasks_checked"`
	TasksRestarted int              `json:"tasks_restarted"`
	TasksFailed    int              `json:"tasks_failed"`
	Details        []WatchdogDetail `json:"details"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
