package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks ragsync/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// InsertIgnore inserts chunks in one transaction, skipping identifiers that
	// already exist. Returns the number of rows inserted.
	InsertIgnore(ctx context.Context, chunks []*ChunkRecord) (int, error)
	// ListIDs returns every chunk identifier without loading text or vectors.
	ListIDs(ctx context.Context) ([]string, error)
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
	// Each calls fn for every stored chunk, stopping at the first error.
	Each(ctx context.Context, fn func(*ChunkRecord) error) error
	// DeleteAll removes every chunk.
	DeleteAll(ctx context.Context) error
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertIgnore inserts chunks in one transaction, skipping identifiers that
// already exist. Existing rows are never modified.
func (r *ChunkRepo) InsertIgnore(ctx context.Context, chunks []*ChunkRecord) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (id, source, page, seq, text, embedding) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	inserted := 0
	for _, c := range chunks {
		res, err := stmt.ExecContext(ctx, c.ID, c.Source, c.Page, c.Seq, c.Text, EncodeVector(c.Embedding))
		if err != nil {
			return 0, fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit chunks: %w", err)
	}
	return inserted, nil
}

// ListIDs returns every chunk identifier in insertion order.
// Returns an empty slice if no chunks exist (not an error).
func (r *ChunkRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM chunks ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// Count returns the number of stored chunks.
func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Each calls fn for every stored chunk in insertion order.
func (r *ChunkRepo) Each(ctx context.Context, fn func(*ChunkRecord) error) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, source, page, seq, text, embedding, created_at FROM chunks ORDER BY rowid",
	)
	if err != nil {
		return fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			chunk ChunkRecord
			blob  []byte
		)
		if err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.Page, &chunk.Seq, &chunk.Text, &blob, &chunk.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan chunk: %w", err)
		}
		if chunk.Embedding, err = DecodeVector(blob); err != nil {
			return fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		if err := fn(&chunk); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

// DeleteAll removes every chunk.
func (r *ChunkRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// EncodeVector serializes a vector as little-endian float32 values.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
