package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"imageForge/api/dto"
	"imageForge/api/middleware"
)

type BatchService interface {
	CreateBatch(ctx context.Context, traceID string, req *dto.CreateBatchRequest) (*dto.BatchResponse, error)
	GetBatchStatus(ctx context.Context, batchID string) (*dto.BatchStatusResponse, error)
	GetTask(ctx context.Context, taskID string) (*dto.TaskResponse, error)
}

type BatchHandler struct {
	service      BatchService
	maxBatchSize int
	logger       *zap.Logger
}

func NewBatchHandler(service BatchService, maxBatchSize int, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		service:      service,
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
}

func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	if len(req.Variations) > h.maxBatchSize {
		h.handleError(w, "Batch too large", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreateBatch(r.Context(), traceID, &req)
	if err != nil {
		if errors.Is(err, dto.ErrEmptyBatch) || errors.Is(err, dto.ErrEmptyPrompt) {
			h.handleError(w, "Invalid batch", err, traceID, http.StatusBadRequest)
			return
		}
		h.handleError(w, "Failed to create batch", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Batch created",
		zap.String("trace_id", traceID),
		zap.String("batch_id", resp.BatchID),
		zap.Int("total", resp.Total),
	)

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *BatchHandler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	batchID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/batches/"), "/status")
	if batchID == "" {
		h.handleError(w, "Batch ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetBatchStatus(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, dto.ErrBatchNotFound) {
			h.handleError(w, "Batch not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get batch status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *BatchHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	taskID := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if taskID == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, dto.ErrTaskNotFound) {
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get task", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *BatchHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *BatchHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
