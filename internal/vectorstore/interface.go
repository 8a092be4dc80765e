package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks ragsync/internal/vectorstore VectorStore,Opener

import "context"

// Metadata keys written with every point.
const (
	MetaSource   = "source"
	MetaPage     = "page"
	MetaSequence = "sequence_index"
)

// Point is a chunk ready to be stored: identifier, embedding, text and metadata.
type Point struct {
	ID   string
	Vec  []float32
	Text string
	Meta map[string]any
}

// SearchResult is a stored point matched by a query.
// Score is cosine similarity in [-1, 1]; higher means more similar.
type SearchResult struct {
	ID    string
	Score float32
	Text  string
	Meta  map[string]any
}

// Source returns the source metadata of the result, or "" if absent.
func (r SearchResult) Source() string {
	s, _ := r.Meta[MetaSource].(string)
	return s
}

// Page returns the page metadata of the result, or 0 if absent.
func (r SearchResult) Page() int {
	return toInt(r.Meta[MetaPage])
}

// VectorStore defines the interface for vector storage operations.
// Records are insert-only: Upsert never overwrites an existing identifier.
type VectorStore interface {
	// ListIDs returns every stored identifier without loading vectors or text.
	ListIDs(ctx context.Context) ([]string, error)

	// Upsert writes points whose identifiers are not stored yet and returns
	// how many were written.
	Upsert(ctx context.Context, points []Point) (int, error)

	// Search returns up to k points ordered by descending similarity.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// Count returns the number of stored points.
	Count(ctx context.Context) (int, error)

	// Clear drops every stored point.
	Clear(ctx context.Context) error

	// Close releases the store.
	Close() error
}

// Opener opens and wipes a persistent store.
type Opener interface {
	// Open opens the store, creating it if absent. A store that exists but
	// cannot be used is an error.
	Open(ctx context.Context) (VectorStore, error)

	// Wipe removes all persisted state so that the next Open starts empty.
	Wipe(ctx context.Context) error

	// Location describes where the store lives, for logs and status output.
	Location() string
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
