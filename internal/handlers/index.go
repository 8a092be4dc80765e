package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"ragsync/internal/contextutil"
	"ragsync/internal/indexer"
)

// IndexRunner runs one ingestion.
type IndexRunner interface {
	Run(ctx context.Context, opts indexer.RunOptions) (*indexer.Report, error)
}

// IndexHandler handles HTTP requests for triggering ingestion.
type IndexHandler struct {
	runner  IndexRunner
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(runner IndexRunner) *IndexHandler {
	return &IndexHandler{runner: runner}
}

// IndexResponse represents the response from the index endpoint.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP handles POST /api/v1/index[?reset=true]. The run continues in the
// background after the response; a second request while one is running gets 409.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	reset, _ := strconv.ParseBool(r.URL.Query().Get("reset"))

	if !h.running.CompareAndSwap(false, true) {
		logger.WarnContext(ctx, "ingestion already running")
		writeError(w, http.StatusConflict, "Ingestion already in progress")
		return
	}

	logger.InfoContext(ctx, "ingestion triggered via API", "reset", reset)

	// Detached from the request so the run outlives the response.
	runCtx := contextutil.WithLogger(context.Background(), logger)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.running.Store(false)

		report, err := h.runner.Run(runCtx, indexer.RunOptions{Reset: reset})
		switch {
		case errors.Is(err, indexer.ErrNoInput):
			logger.WarnContext(runCtx, "ingestion found no documents")
		case err != nil:
			logger.ErrorContext(runCtx, "ingestion failed", "error", err)
		default:
			logger.InfoContext(runCtx, "ingestion completed",
				"files", report.Files,
				"chunks", report.Chunks,
				"inserted", report.Sync.Inserted,
				"write_errors", len(report.Sync.Failures),
			)
		}
	}()

	message := "Ingestion started. Check server logs for progress."
	if reset {
		message = "Ingestion with reset started (existing records are cleared). Check server logs for progress."
	}
	_ = writeJSON(w, http.StatusAccepted, IndexResponse{
		Message: message,
		Status:  "accepted",
	})
}

// Wait blocks until the background run, if any, has finished.
func (h *IndexHandler) Wait() {
	h.wg.Wait()
}
