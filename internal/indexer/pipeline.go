package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"ragsync/internal/contextutil"
	"ragsync/internal/loader"
	"ragsync/internal/vectorstore"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("ingestion already in progress")

// DocumentLoader reads the input documents.
type DocumentLoader interface {
	Load(ctx context.Context) (*loader.Result, error)
}

// PipelineConfig wires the collaborators of a Pipeline.
type PipelineConfig struct {
	Loader         DocumentLoader
	Splitter       *RecursiveSplitter
	Opener         vectorstore.Opener
	Embedder       Embedder
	BatchSize      int
	EmbeddingModel string // Recorded in the index version
}

// Pipeline orchestrates ingestion: load, split, assign identities, open the
// store and synchronize.
type Pipeline struct {
	cfg PipelineConfig
	mu  sync.Mutex
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Splitter == nil {
		cfg.Splitter = NewRecursiveSplitter(800, 80)
	}
	return &Pipeline{cfg: cfg}
}

// RunOptions controls a single ingestion run.
type RunOptions struct {
	// Reset wipes the store before ingesting.
	Reset bool
	// OnCleared, if set, is called once a reset has wiped the store and
	// before any chunk is written.
	OnCleared func()
}

// Report summarizes an ingestion run.
type Report struct {
	Files      int
	Pages      int
	Chunks     int
	LoadErrors []*loader.LoadError
	Sync       *SyncReport
	Stats      *IndexingCoverageStats
}

// Run ingests the data directory. Unreadable documents and chunks that fail
// to persist are reported, not returned as errors. ErrNoInput is returned
// (with a partial report) when nothing was loaded; the store is not touched
// in that case, even with Reset. A store that cannot be opened yields a
// *StoreOpenError.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	ctx = contextutil.WithAttrs(ctx, "run_id", uuid.NewString(), "reset", opts.Reset)
	logger := getLogger(ctx)

	loaded, err := p.cfg.Loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	report := &Report{
		Files:      loaded.Files,
		Pages:      len(loaded.Pages),
		LoadErrors: loaded.Errors,
	}
	if len(loaded.Pages) == 0 {
		logger.WarnContext(ctx, "no documents found in the data folder", "files", loaded.Files)
		return report, ErrNoInput
	}

	pieces := p.cfg.Splitter.SplitPages(loaded.Pages)
	chunks := AssignIDs(pieces)
	report.Chunks = len(chunks)
	logger.InfoContext(ctx, "split documents into chunks", "pages", report.Pages, "chunks", report.Chunks)

	store, err := OpenStore(ctx, p.cfg.Opener, opts.Reset)
	if err != nil {
		return report, err
	}
	if opts.Reset && opts.OnCleared != nil {
		opts.OnCleared()
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WarnContext(ctx, "failed to close store", "error", err)
		}
	}()

	syncReport, err := NewSynchronizer(store, p.cfg.Embedder, p.cfg.BatchSize).Sync(ctx, chunks)
	if err != nil {
		return report, err
	}
	report.Sync = syncReport
	report.Stats = computeCoverageStats(report, chunks, p.cfg.Splitter, p.cfg.EmbeddingModel)

	logger.InfoContext(ctx, "ingestion completed",
		"files", report.Files,
		"load_errors", len(report.LoadErrors),
		"chunks", report.Chunks,
		"inserted", syncReport.Inserted,
		"write_errors", len(syncReport.Failures),
		"index_version", report.Stats.IndexVersion,
		"chunk_tokens_p95", report.Stats.ChunkTokenStats.P95,
	)
	return report, nil
}

// getLogger extracts logger from context or returns default logger.
func getLogger(ctx context.Context) *slog.Logger {
	return contextutil.LoggerFromContext(ctx)
}
