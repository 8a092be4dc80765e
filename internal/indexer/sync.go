package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks ragsync/internal/indexer Embedder

import (
	"context"
	"fmt"

	"ragsync/internal/vectorstore"
)

// DefaultBatchSize is the number of chunks embedded and written per request.
const DefaultBatchSize = 64

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// SyncReport summarizes one synchronization.
type SyncReport struct {
	Existing  int // Identifiers already in the store before the run
	Candidate int // Chunks offered to the synchronizer
	New       int // Candidates whose identifier was not in the store
	Inserted  int // Records actually written
	Fallbacks int // Batches retried one chunk at a time
	Failures  []*StoreWriteError
}

// Synchronizer inserts the chunks a store does not have yet.
type Synchronizer struct {
	store     vectorstore.VectorStore
	embedder  Embedder
	batchSize int
}

// NewSynchronizer creates a Synchronizer. A non-positive batchSize uses DefaultBatchSize.
func NewSynchronizer(store vectorstore.VectorStore, embedder Embedder, batchSize int) *Synchronizer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Synchronizer{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// Delta returns the chunks whose identifiers are not in existing, in input
// order. A repeated identifier is kept only at its first occurrence.
func Delta(chunks []Chunk, existing []string) []Chunk {
	seen := make(map[string]struct{}, len(existing)+len(chunks))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	var delta []Chunk
	for _, c := range chunks {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		delta = append(delta, c)
	}
	return delta
}

// Sync lists the identifiers already stored and writes only the missing
// chunks. A failed batch is retried one chunk at a time; chunks that still
// fail are recorded in the report and do not stop the run. The returned error
// is non-nil only when the store cannot be listed or ctx is done.
func (s *Synchronizer) Sync(ctx context.Context, chunks []Chunk) (*SyncReport, error) {
	logger := getLogger(ctx)

	existing, err := s.store.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing chunk ids: %w", err)
	}

	delta := Delta(chunks, existing)
	report := &SyncReport{
		Existing:  len(existing),
		Candidate: len(chunks),
		New:       len(delta),
	}
	logger.InfoContext(ctx, "existing chunks in store", "count", report.Existing)

	if len(delta) == 0 {
		logger.InfoContext(ctx, "no new chunks to add")
		return report, nil
	}
	logger.InfoContext(ctx, "adding new chunks", "count", len(delta), "batch_size", s.batchSize)

	for start := 0; start < len(delta); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := min(start+s.batchSize, len(delta))
		batch := delta[start:end]

		inserted, err := s.writeBatch(ctx, batch)
		if err == nil {
			report.Inserted += inserted
			continue
		}

		logger.WarnContext(ctx, "batch write failed, retrying chunks individually",
			"first_id", batch[0].ID,
			"size", len(batch),
			"error", err,
		)
		report.Fallbacks++
		for _, c := range batch {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			n, err := s.writeBatch(ctx, []Chunk{c})
			if err != nil {
				writeErr := &StoreWriteError{ChunkIDs: []string{c.ID}, Err: err}
				logger.ErrorContext(ctx, "failed to write chunk", "chunk_id", c.ID, "error", err)
				report.Failures = append(report.Failures, writeErr)
				continue
			}
			report.Inserted += n
		}
	}

	logger.InfoContext(ctx, "synchronization finished",
		"inserted", report.Inserted,
		"failed", len(report.Failures),
	)
	return report, nil
}

// writeBatch embeds the batch and writes it as one upsert.
func (s *Synchronizer) writeBatch(ctx context.Context, batch []Chunk) (int, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(batch) {
		return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
	}

	points := make([]vectorstore.Point, len(batch))
	for i, c := range batch {
		points[i] = vectorstore.Point{
			ID:   c.ID,
			Vec:  vectors[i],
			Text: c.Text,
			Meta: map[string]any{
				vectorstore.MetaSource:   c.Source,
				vectorstore.MetaPage:     c.Page,
				vectorstore.MetaSequence: c.SequenceIndex,
			},
		}
	}

	inserted, err := s.store.Upsert(ctx, points)
	if err != nil {
		return 0, fmt.Errorf("failed to write chunks: %w", err)
	}
	return inserted, nil
}
