package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"ragsync/internal/contextutil"
	"ragsync/internal/storage"
)

const (
	localDBName    = "chunks.db"
	writeTestName = ".write-test"
	metaVectorSize = "vector_size"
)

// ErrVectorSizeMismatch is returned when a store was built with a different
// embedding size than the one configured.
var ErrVectorSizeMismatch = errors.New("vector size mismatch")

// LocalStore implements VectorStore on a SQLite file with brute-force cosine search.
type LocalStore struct {
	db         *sql.DB
	chunks     storage.ChunkStore
	vectorSize int
}

// LocalOpener opens a LocalStore inside a directory.
type LocalOpener struct {
	Dir        string
	VectorSize int
}

// NewLocalOpener creates an opener for the store directory dir.
func NewLocalOpener(dir string, vectorSize int) *LocalOpener {
	return &LocalOpener{Dir: dir, VectorSize: vectorSize}
}

// Location returns the store directory.
func (o *LocalOpener) Location() string {
	return o.Dir
}

// Open creates the directory if needed, checks that it is writable, opens the
// database and verifies its integrity and vector size.
func (o *LocalOpener) Open(ctx context.Context) (VectorStore, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := ensureWritable(o.Dir); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(o.Dir, localDBName)
	db, err := storage.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	if err := o.prepare(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.DebugContext(ctx, "local store opened", "path", dbPath, "vector_size", o.VectorSize)
	return &LocalStore{
		db:         db,
		chunks:     storage.NewChunkRepo(db),
		vectorSize: o.VectorSize,
	}, nil
}

func (o *LocalOpener) prepare(ctx context.Context, db *sql.DB) error {
	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := storage.CheckIntegrity(ctx, db); err != nil {
		return err
	}

	meta := storage.NewMetaRepo(db)
	stored, err := meta.Get(ctx, metaVectorSize)
	if errors.Is(err, storage.ErrNotFound) {
		return meta.Set(ctx, metaVectorSize, strconv.Itoa(o.VectorSize))
	}
	if err != nil {
		return err
	}
	if stored != strconv.Itoa(o.VectorSize) {
		return fmt.Errorf("%w: store has %s, configured %d", ErrVectorSizeMismatch, stored, o.VectorSize)
	}
	return nil
}

// Wipe removes the store directory and recreates it empty.
func (o *LocalOpener) Wipe(_ context.Context) error {
	if err := os.RemoveAll(o.Dir); err != nil {
		return fmt.Errorf("failed to remove store directory: %w", err)
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// ensureWritable creates dir and proves it is writable with a scratch file.
func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store path %s is not writable: %w", dir, err)
	}
	scratch := filepath.Join(dir, writeTestName)
	if err := os.WriteFile(scratch, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("store path %s is not writable: %w", dir, err)
	}
	if err := os.Remove(scratch); err != nil {
		return fmt.Errorf("store path %s is not writable: %w", dir, err)
	}
	return nil
}

// ListIDs returns every stored identifier.
func (s *LocalStore) ListIDs(ctx context.Context) ([]string, error) {
	return s.chunks.ListIDs(ctx)
}

// Upsert writes points whose identifiers are not stored yet, in one transaction.
func (s *LocalStore) Upsert(ctx context.Context, points []Point) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return 0, nil
	}

	records := make([]*storage.ChunkRecord, 0, len(points))
	for _, p := range points {
		if len(p.Vec) != s.vectorSize {
			return 0, fmt.Errorf("point %s has vector size %d, expected %d", p.ID, len(p.Vec), s.vectorSize)
		}
		source, _ := p.Meta[MetaSource].(string)
		records = append(records, &storage.ChunkRecord{
			ID:        p.ID,
			Source:    source,
			Page:      toInt(p.Meta[MetaPage]),
			Seq:       toInt(p.Meta[MetaSequence]),
			Text:      p.Text,
			Embedding: p.Vec,
		})
	}

	inserted, err := s.chunks.InsertIgnore(ctx, records)
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "count", len(points), "error", err)
		return 0, fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.DebugContext(ctx, "upserted points", "count", len(points), "inserted", inserted)
	return inserted, nil
}

// Search scores every stored chunk against query.
func (s *LocalStore) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if len(query) != s.vectorSize {
		return nil, fmt.Errorf("query has vector size %d, expected %d", len(query), s.vectorSize)
	}

	var results []SearchResult
	err := s.chunks.Each(ctx, func(c *storage.ChunkRecord) error {
		score, err := CosineSimilarity(query, c.Embedding)
		if err != nil {
			return fmt.Errorf("failed to score chunk %s: %w", c.ID, err)
		}
		results = append(results, SearchResult{
			ID:    c.ID,
			Score: score,
			Text:  c.Text,
			Meta: map[string]any{
				MetaSource:   c.Source,
				MetaPage:     c.Page,
				MetaSequence: c.Seq,
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	return topK(results, k), nil
}

// Count returns the number of stored chunks.
func (s *LocalStore) Count(ctx context.Context) (int, error) {
	return s.chunks.Count(ctx)
}

// Clear deletes every chunk but keeps the database.
func (s *LocalStore) Clear(ctx context.Context) error {
	return s.chunks.DeleteAll(ctx)
}

// Close closes the database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}
