package cli

import (
	"ragsync/internal/config"
	"ragsync/internal/indexer"
	"ragsync/internal/llm"
	"ragsync/internal/loader"
	"ragsync/internal/rag"
	"ragsync/internal/vectorstore"
)

// App holds the components the commands work with.
type App struct {
	Config   *config.Config
	Opener   vectorstore.Opener
	Loader   *loader.Loader
	Embedder *llm.EmbeddingsClient
	Pipeline *indexer.Pipeline
	Engine   rag.Engine
}

func buildApp(cfg *config.Config) (*App, error) {
	opener, err := vectorstore.NewOpener(cfg)
	if err != nil {
		return nil, err
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	docs := loader.New(cfg.DataPath)

	pipeline := indexer.NewPipeline(indexer.PipelineConfig{
		Loader:         docs,
		Splitter:       indexer.NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		Opener:         opener,
		Embedder:       embedder,
		BatchSize:      cfg.SyncBatchSize,
		EmbeddingModel: cfg.EmbeddingModelName,
	})

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	return &App{
		Config:   cfg,
		Opener:   opener,
		Loader:   docs,
		Embedder: embedder,
		Pipeline: pipeline,
		Engine:   rag.NewEngine(embedder, opener, llmClient, cfg.QueryK),
	}, nil
}
