package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks ragsync/internal/rag Engine

import (
	"context"
	"log/slog"
	"strings"

	"ragsync/internal/contextutil"
	"ragsync/internal/llm"
	"ragsync/internal/vectorstore"
)

const (
	// DefaultK is the number of chunks retrieved when neither the request
	// nor the engine configuration sets one.
	DefaultK = 5
	// MaxK caps the number of retrieved chunks.
	MaxK = 20

	// NoResultsAnswer is returned without calling the LLM when nothing was retrieved.
	NoResultsAnswer = "I couldn't find any relevant information in the ingested documents to answer this question."
)

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Ask answers a question using RAG by retrieving relevant chunks and generating an answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)

	// AskStream is Ask with the answer delivered through onToken as it is generated.
	// The returned response carries the full answer and the references.
	AskStream(ctx context.Context, req AskRequest, onToken func(string) error) (AskResponse, error)
}

// QueryEmbedder embeds a question.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LLMClient generates answers.
type LLMClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	StreamChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	embedder QueryEmbedder
	opener   vectorstore.Opener
	llm      LLMClient
	defaultK int
}

// NewEngine creates a new RAG engine. The store is opened for every query so
// that a concurrent ingestion with reset never leaves the engine holding a
// removed store. A non-positive defaultK uses DefaultK.
func NewEngine(embedder QueryEmbedder, opener vectorstore.Opener, llmClient LLMClient, defaultK int) Engine {
	if defaultK <= 0 {
		defaultK = DefaultK
	}
	return &ragEngine{
		embedder: embedder,
		opener:   opener,
		llm:      llmClient,
		defaultK: defaultK,
	}
}

// getLogger extracts logger from context or returns default logger.
func getLogger(ctx context.Context) *slog.Logger {
	return contextutil.LoggerFromContext(ctx)
}

// Ask answers a question using RAG.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := getLogger(ctx)

	refs, prompt, err := e.retrieve(ctx, req)
	if err != nil {
		return AskResponse{}, err
	}
	if len(refs) == 0 {
		return AskResponse{Answer: NoResultsAnswer, References: refs}, nil
	}

	answer, err := e.llm.ChatWithMessages(ctx, promptMessages(prompt), llm.ChatParams{})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return AskResponse{}, wrapError(ErrExternalService, "failed to get LLM response", err)
	}

	logger.InfoContext(ctx, "RAG query completed", "chunks_used", len(refs), "answer_length", len(answer))
	return AskResponse{Answer: answer, References: refs}, nil
}

// AskStream answers a question and streams the answer tokens.
func (e *ragEngine) AskStream(ctx context.Context, req AskRequest, onToken func(string) error) (AskResponse, error) {
	logger := getLogger(ctx)

	refs, prompt, err := e.retrieve(ctx, req)
	if err != nil {
		return AskResponse{}, err
	}
	if len(refs) == 0 {
		if err := onToken(NoResultsAnswer); err != nil {
			return AskResponse{}, err
		}
		return AskResponse{Answer: NoResultsAnswer, References: refs}, nil
	}

	var answer strings.Builder
	err = e.llm.StreamChatWithMessages(ctx, promptMessages(prompt), llm.ChatParams{}, func(chunk string) error {
		answer.WriteString(chunk)
		return onToken(chunk)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to stream LLM response", "error", err)
		return AskResponse{}, wrapError(ErrExternalService, "failed to stream LLM response", err)
	}

	logger.InfoContext(ctx, "RAG query completed", "chunks_used", len(refs), "answer_length", answer.Len(), "stream", true)
	return AskResponse{Answer: answer.String(), References: refs}, nil
}

// retrieve validates the request, embeds the question and searches the store.
// It returns the references in descending similarity and the filled prompt.
func (e *ragEngine) retrieve(ctx context.Context, req AskRequest) ([]Reference, string, error) {
	logger := getLogger(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, "", &ValidationError{Field: "question", Message: "must not be empty"}
	}
	if req.K < 0 {
		return nil, "", &ValidationError{Field: "k", Message: "must not be negative"}
	}
	k := req.K
	if k == 0 {
		k = e.defaultK
	}
	k = min(k, MaxK)

	logger.InfoContext(ctx, "RAG query started", "question_length", len(question), "k", k)

	queryVector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed question", "error", err)
		return nil, "", wrapError(ErrExternalService, "failed to embed question", err)
	}

	store, err := e.opener.Open(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open store", "location", e.opener.Location(), "error", err)
		return nil, "", wrapError(ErrStoreUnavailable, "failed to open store", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WarnContext(ctx, "failed to close store", "error", err)
		}
	}()

	results, err := store.Search(ctx, queryVector, k)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search vector store", "error", err)
		return nil, "", wrapError(ErrStoreUnavailable, "failed to search vector store", err)
	}
	logger.InfoContext(ctx, "vector search completed", "results_count", len(results), "k_requested", k)

	refs := make([]Reference, 0, len(results))
	texts := make([]string, 0, len(results))
	for i, r := range results {
		refs = append(refs, Reference{
			ChunkID: r.ID,
			Source:  r.Source(),
			Page:    r.Page(),
			Score:   r.Score,
			Text:    r.Text,
		})
		texts = append(texts, r.Text)
		logger.DebugContext(ctx, "retrieved chunk", "rank", i+1, "chunk_id", r.ID, "score", r.Score)
	}
	if len(refs) == 0 {
		logger.InfoContext(ctx, "no search results found")
		return refs, "", nil
	}

	prompt := BuildPrompt(texts, question)
	logger.DebugContext(ctx, "prompt built", "prompt_length", len(prompt))
	return refs, prompt, nil
}

func promptMessages(prompt string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: prompt}}
}
