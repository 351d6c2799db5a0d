package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"imageForge/api/dto"
	"imageForge/api/middleware"
)

type mockBatchService struct {
	createBatchFunc func(ctx context.Context, traceID string, req *dto.CreateBatchRequest) (*dto.BatchResponse, error)
	batchStatusFunc func(ctx context.Context, batchID string) (*dto.BatchStatusResponse, error)
	getTaskFunc     func(ctx context.Context, taskID string) (*dto.TaskResponse, error)
}

func (m *mockBatchService) CreateBatch(ctx context.Context, traceID string, req *dto.CreateBatchRequest) (*dto.BatchResponse, error) {
	if m.createBatchFunc != nil {
		return m.createBatchFunc(ctx, traceID, req)
	}
	return &dto.BatchResponse{
		BatchID:   uuid.New().String(),
		TraceID:   traceID,
		Total:     len(req.Variations),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (m *mockBatchService) GetBatchStatus(ctx context.Context, batchID string) (*dto.BatchStatusResponse, error) {
	if m.batchStatusFunc != nil {
		return m.batchStatusFunc(ctx, batchID)
	}
	return &dto.BatchStatusResponse{BatchID: batchID, Total: 3, Completed: 3, Pending: 0, Done: true}, nil
}

func (m *mockBatchService) GetTask(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
	if m.getTaskFunc != nil {
		return m.getTaskFunc(ctx, taskID)
	}
	return &dto.TaskResponse{ID: taskID, Status: "completed"}, nil
}

func newTestRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	traceID := uuid.New().String()
	ctx := context.WithValue(req.Context(), middleware.TraceIDKey, traceID)
	return req.WithContext(ctx)
}

func TestBatchHandler_Create_Success(t *testing.T) {
	handler := NewBatchHandler(&mockBatchService{}, 20, zaptest.NewLogger(t))

	body, _ := json.Marshal(dto.CreateBatchRequest{
		OwnerID:    "owner-1",
		Variations: []dto.BatchVariation{{Prompt: "a red barn"}, {Prompt: "a blue barn"}},
	})
	req := newTestRequest(t, "POST", "/batches", body)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var resp dto.BatchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("Expected total 2, got %d", resp.Total)
	}
}

func TestBatchHandler_Create_InvalidBody(t *testing.T) {
	handler := NewBatchHandler(&mockBatchService{}, 20, zaptest.NewLogger(t))

	req := newTestRequest(t, "POST", "/batches", []byte("{not json"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestBatchHandler_Create_EmptyBatch(t *testing.T) {
	mockService := &mockBatchService{
		createBatchFunc: func(ctx context.Context, traceID string, req *dto.CreateBatchRequest) (*dto.BatchResponse, error) {
			return nil, dto.ErrEmptyBatch
		},
	}
	handler := NewBatchHandler(mockService, 20, zaptest.NewLogger(t))

	body, _ := json.Marshal(dto.CreateBatchRequest{OwnerID: "owner-1"})
	req := newTestRequest(t, "POST", "/batches", body)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestBatchHandler_Create_BatchTooLarge(t *testing.T) {
	handler := NewBatchHandler(&mockBatchService{}, 2, zaptest.NewLogger(t))

	body, _ := json.Marshal(dto.CreateBatchRequest{
		OwnerID:    "owner-1",
		Variations: []dto.BatchVariation{{Prompt: "a"}, {Prompt: "b"}, {Prompt: "c"}},
	})
	req := newTestRequest(t, "POST", "/batches", body)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestBatchHandler_BatchStatus_Success(t *testing.T) {
	batchID := uuid.New().String()
	handler := NewBatchHandler(&mockBatchService{}, 20, zaptest.NewLogger(t))

	req := newTestRequest(t, "GET", "/batches/"+batchID+"/status", nil)
	rec := httptest.NewRecorder()

	handler.BatchStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var resp dto.BatchStatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.BatchID != batchID {
		t.Errorf("Expected batch id %s, got %s", batchID, resp.BatchID)
	}
}

func TestBatchHandler_BatchStatus_NotFound(t *testing.T) {
	mockService := &mockBatchService{
		batchStatusFunc: func(ctx context.Context, batchID string) (*dto.BatchStatusResponse, error) {
			return nil, dto.ErrBatchNotFound
		},
	}
	handler := NewBatchHandler(mockService, 20, zaptest.NewLogger(t))

	req := newTestRequest(t, "GET", "/batches/"+uuid.New().String()+"/status", nil)
	rec := httptest.NewRecorder()

	handler.BatchStatus(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestBatchHandler_TaskStatus_NotFound(t *testing.T) {
	mockService := &mockBatchService{
		getTaskFunc: func(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
			return nil, dto.ErrTaskNotFound
		},
	}
	handler := NewBatchHandler(mockService, 20, zaptest.NewLogger(t))

	req := newTestRequest(t, "GET", "/tasks/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	handler.TaskStatus(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestBatchHandler_TaskStatus_EmptyTaskID(t *testing.T) {
	handler := NewBatchHandler(&mockBatchService{}, 20, zaptest.NewLogger(t))

	req := newTestRequest(t, "GET", "/tasks/", nil)
	rec := httptest.NewRecorder()

	handler.TaskStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

type mockWatchdogService struct {
	scanFunc func(ctx context.Context, req *dto.WatchdogRequest) (*dto.WatchdogResponse, error)
}

func (m *mockWatchdogService) Scan(ctx context.Context, req *dto.WatchdogRequest) (*dto.WatchdogResponse, error) {
	if m.scanFunc != nil {
		return m.scanFunc(ctx, req)
	}
	return &dto.WatchdogResponse{Details: []dto.WatchdogDetail{}}, nil
}

func TestWatchdogHandler_Scan_EmptyBodyIsGlobalScan(t *testing.T) {
	var got *dto.WatchdogRequest
	mockService := &mockWatchdogService{
		scanFunc: func(ctx context.Context, req *dto.WatchdogRequest) (*dto.WatchdogResponse, error) {
			got = req
			return &dto.WatchdogResponse{TasksChecked: 2, Details: []dto.WatchdogDetail{}}, nil
		},
	}
	handler := NewWatchdogHandler(mockService, zaptest.NewLogger(t))

	req := newTestRequest(t, "POST", "/watchdog/scan", nil)
	rec := httptest.NewRecorder()

	handler.Scan(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if got == nil || got.BatchID != "" {
		t.Errorf("Expected global scan request, got %+v", got)
	}

	var resp dto.WatchdogResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TasksChecked != 2 {
		t.Errorf("Expected 2 tasks checked, got %d", resp.TasksChecked)
	}
}

func TestWatchdogHandler_Scan_BatchScoped(t *testing.T) {
	var got *dto.WatchdogRequest
	mockService := &mockWatchdogService{
		scanFunc: func(ctx context.Context, req *dto.WatchdogRequest) (*dto.WatchdogResponse, error) {
			got = req
			return &dto.WatchdogResponse{Details: []dto.WatchdogDetail{}}, nil
		},
	}
	handler := NewWatchdogHandler(mockService, zaptest.NewLogger(t))

	req := newTestRequest(t, "POST", "/watchdog/scan", []byte(`{"batch_id":"batch-7"}`))
	rec := httptest.NewRecorder()

	handler.Scan(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if got == nil || got.BatchID != "batch-7" {
		t.Errorf("Expected batch-7 scan, got %+v", got)
	}
}

func TestWatchdogHandler_Scan_ServiceError(t *testing.T) {
	mockService := &mockWatchdogService{
		scanFunc: func(ctx context.Context, req *dto.WatchdogRequest) (*dto.WatchdogResponse, error) {
			return nil, context.DeadlineExceeded
		},
	}
	handler := NewWatchdogHandler(mockService, zaptest.NewLogger(t))

	req := newTestRequest(t, "POST", "/watchdog/scan", []byte(`{}`))
	rec := httptest.NewRecorder()

	handler.Scan(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
}
