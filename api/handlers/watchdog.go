package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"imageForge/api/dto"
	"imageForge/api/middleware"
)

type WatchdogService interface {
	Scan(ctx context.Context, req *dto.WatchdogRequest) (*dto.WatchdogResponse, error)
}

type WatchdogHandler struct {
	service WatchdogService
	logger  *zap.Logger
}

func NewWatchdogHandler(service WatchdogService, logger *zap.Logger) *WatchdogHandler {
	return &WatchdogHandler{
		service: service,
		logger:  logger,
	}
}

// Scan is triggered by an external cron-equivalent. An empty body means a
// global scan.
func (h *WatchdogHandler) Scan(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	var req dto.WatchdogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		h.handleError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.Scan(r.Context(), &req)
	if err != nil {
		h.handleError(w, "Watchdog scan failed", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *WatchdogHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
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

func (h *WatchdogHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
