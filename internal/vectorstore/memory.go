package vectorstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a process-local VectorStore. It is used for dry runs and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	vectorSize int
	order      []string
	points     map[string]Point
}

// NewMemoryStore creates an empty store. A vectorSize of 0 accepts any size.
func NewMemoryStore(vectorSize int) *MemoryStore {
	return &MemoryStore{
		vectorSize: vectorSize,
		points:     make(map[string]Point),
	}
}

// ListIDs returns the stored identifiers in insertion order.
func (s *MemoryStore) ListIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids, nil
}

// Upsert stores points with new identifiers. The whole call fails if any
// vector has the wrong size.
func (s *MemoryStore) Upsert(_ context.Context, points []Point) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vectorSize > 0 {
		for _, p := range points {
			if len(p.Vec) != s.vectorSize {
				return 0, fmt.Errorf("point %s has vector size %d, expected %d", p.ID, len(p.Vec), s.vectorSize)
			}
		}
	}

	inserted := 0
	for _, p := range points {
		if _, ok := s.points[p.ID]; ok {
			continue
		}
		s.points[p.ID] = p
		s.order = append(s.order, p.ID)
		inserted++
	}
	return inserted, nil
}

// Search scans every point.
func (s *MemoryStore) Search(_ context.Context, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.order))
	for _, id := range s.order {
		p := s.points[id]
		score, err := CosineSimilarity(query, p.Vec)
		if err != nil {
			return nil, fmt.Errorf("failed to score point %s: %w", id, err)
		}
		results = append(results, SearchResult{ID: p.ID, Score: score, Text: p.Text, Meta: p.Meta})
	}
	return topK(results, k), nil
}

// Count returns the number of stored points.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

// Clear drops every point.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.points = make(map[string]Point)
	return nil
}

// Close is a no-op so the store survives reopening through MemoryOpener.
func (s *MemoryStore) Close() error {
	return nil
}

// MemoryOpener hands out the same MemoryStore on every Open.
type MemoryOpener struct {
	Store *MemoryStore
}

// NewMemoryOpener creates an opener around a fresh MemoryStore.
func NewMemoryOpener(vectorSize int) *MemoryOpener {
	return &MemoryOpener{Store: NewMemoryStore(vectorSize)}
}

// Open returns the shared store.
func (o *MemoryOpener) Open(_ context.Context) (VectorStore, error) {
	return o.Store, nil
}

// Wipe clears the shared store.
func (o *MemoryOpener) Wipe(ctx context.Context) error {
	return o.Store.Clear(ctx)
}

// Location returns a fixed description.
func (o *MemoryOpener) Location() string {
	return "memory"
}
