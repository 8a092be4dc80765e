package storage

import "time"

// ChunkRecord is a persisted chunk with its embedding.
type ChunkRecord struct {
	ID        string // Chunk identifier "{source}:{page}:{seq}"
	Source    string
	Page      int
	Seq       int
	Text      string
	Embedding []float32
	CreatedAt time.Time
}
