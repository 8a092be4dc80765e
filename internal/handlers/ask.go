package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ragsync/internal/contextutil"
	"ragsync/internal/rag"
)

// AskHandler handles HTTP requests for RAG queries.
type AskHandler struct {
	ragEngine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(ragEngine rag.Engine) *AskHandler {
	return &AskHandler{ragEngine: ragEngine}
}

// AskRequest represents the HTTP request payload for RAG queries.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// ReferenceResponse represents a cited chunk in the HTTP response.
type ReferenceResponse struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Score   float32 `json:"score"`
	Text    string  `json:"text"`
}

// AskResponse represents the HTTP response payload for RAG queries.
type AskResponse struct {
	// The generated answer
	Answer string `json:"answer"`

	// Chunks given to the LLM, most similar first
	References []ReferenceResponse `json:"references"`
}

// streamEvent is one Server-Sent Event of a streamed answer.
type streamEvent struct {
	Token      string              `json:"token,omitempty"`
	References []ReferenceResponse `json:"references,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// ServeHTTP handles POST /api/v1/ask. With ?stream=true the answer is sent
// as Server-Sent Events: one {"token"} event per chunk, then a
// {"references"} event and a final [DONE].
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ragReq := rag.AskRequest{Question: req.Question, K: req.K}

	if stream, _ := strconv.ParseBool(r.URL.Query().Get("stream")); stream {
		h.serveStream(ctx, w, ragReq)
		return
	}

	ragResp, err := h.ragEngine.Ask(ctx, ragReq)
	if err != nil {
		h.handleRAGError(ctx, w, err)
		return
	}

	resp := AskResponse{
		Answer:     ragResp.Answer,
		References: toReferenceResponses(ragResp.References),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *AskHandler) serveStream(ctx context.Context, w http.ResponseWriter, req rag.AskRequest) {
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	started := false
	send := func(ev streamEvent) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	resp, err := h.ragEngine.AskStream(ctx, req, func(token string) error {
		return send(streamEvent{Token: token})
	})
	if err != nil {
		if !started {
			// Nothing sent yet, so a regular status code still applies.
			h.handleRAGError(ctx, w, err)
			return
		}
		logger.ErrorContext(ctx, "error streaming answer", "error", err)
		_ = send(streamEvent{Error: err.Error()})
		return
	}

	if err := send(streamEvent{References: toReferenceResponses(resp.References)}); err != nil {
		logger.WarnContext(ctx, "failed to send references", "error", err)
		return
	}
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// handleRAGError maps RAG engine errors to HTTP status codes.
func (h *AskHandler) handleRAGError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "RAG engine error", "error", err)

	var validationErr *rag.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
	case errors.Is(err, rag.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, rag.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
	case errors.Is(err, rag.ErrExternalService):
		writeError(w, http.StatusBadGateway, "External service error")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to process RAG query")
	}
}

func toReferenceResponses(refs []rag.Reference) []ReferenceResponse {
	out := make([]ReferenceResponse, len(refs))
	for i, ref := range refs {
		out[i] = ReferenceResponse(ref)
	}
	return out
}
