package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ragsync/internal/contextutil"
	"ragsync/internal/vectorstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	opener             vectorstore.Opener
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(opener vectorstore.Opener) *HealthHandler {
	return &HealthHandler{
		opener:             opener,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Number of stored chunks (only present if the store is reachable)
	Records *int `json:"records,omitempty"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health.
// Returns 200 OK if the store can be opened and counted, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{},
	}
	httpStatus := http.StatusOK

	if count, ok := h.checkVectorStore(checkCtx, logger); ok {
		response.Checks["vector_store"] = "ok"
		response.Records = &count
	} else {
		response.Checks["vector_store"] = "error"
		response.Issues = append(response.Issues, "vector_store_unavailable")
		response.Status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	if err := writeJSON(w, httpStatus, response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

// checkVectorStore opens the store and counts its records.
func (h *HealthHandler) checkVectorStore(ctx context.Context, logger *slog.Logger) (int, bool) {
	store, err := h.opener.Open(ctx)
	if err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "location", h.opener.Location(), "error", err)
		return 0, false
	}
	defer func() {
		_ = store.Close()
	}()

	count, err := store.Count(ctx)
	if err != nil {
		logger.WarnContext(ctx, "vector store count failed", "error", err)
		return 0, false
	}
	return count, true
}
