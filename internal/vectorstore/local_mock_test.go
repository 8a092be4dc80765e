package vectorstore

import (
	"context"
	"errors"
	"testing"

	"ragsync/internal/storage"
	storage_mocks "ragsync/internal/storage/mocks"

	"go.uber.org/mock/gomock"
)

func TestLocalStore_UpsertRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	chunks := storage_mocks.NewMockChunkStore(ctrl)
	store := &LocalStore{chunks: chunks, vectorSize: 2}

	chunks.EXPECT().
		InsertIgnore(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, records []*storage.ChunkRecord) (int, error) {
			if len(records) != 1 {
				t.Fatalf("InsertIgnore() got %d records, want 1", len(records))
			}
			r := records[0]
			if r.ID != "a.pdf:3:1" || r.Source != "a.pdf" || r.Page != 3 || r.Seq != 1 || r.Text != "text of a.pdf:3:1" {
				t.Errorf("record = %+v", r)
			}
			return 1, nil
		})

	n, err := store.Upsert(context.Background(), []Point{point("a.pdf:3:1", "a.pdf", 3, 1, 1, 0)})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Upsert() = %d, want 1", n)
	}
}

func TestLocalStore_RepositoryErrors(t *testing.T) {
	boom := errors.New("disk I/O error")

	tests := []struct {
		name  string
		setup func(m *storage_mocks.MockChunkStore)
		call  func(s *LocalStore) error
	}{
		{
			name: "upsert",
			setup: func(m *storage_mocks.MockChunkStore) {
				m.EXPECT().InsertIgnore(gomock.Any(), gomock.Any()).Return(0, boom)
			},
			call: func(s *LocalStore) error {
				_, err := s.Upsert(context.Background(), []Point{point("a.pdf:0:0", "a.pdf", 0, 0, 1, 0)})
				return err
			},
		},
		{
			name: "search",
			setup: func(m *storage_mocks.MockChunkStore) {
				m.EXPECT().Each(gomock.Any(), gomock.Any()).Return(boom)
			},
			call: func(s *LocalStore) error {
				_, err := s.Search(context.Background(), []float32{1, 0}, 3)
				return err
			},
		},
		{
			name: "list ids",
			setup: func(m *storage_mocks.MockChunkStore) {
				m.EXPECT().ListIDs(gomock.Any()).Return(nil, boom)
			},
			call: func(s *LocalStore) error {
				_, err := s.ListIDs(context.Background())
				return err
			},
		},
		{
			name: "count",
			setup: func(m *storage_mocks.MockChunkStore) {
				m.EXPECT().Count(gomock.Any()).Return(0, boom)
			},
			call: func(s *LocalStore) error {
				_, err := s.Count(context.Background())
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			chunks := storage_mocks.NewMockChunkStore(ctrl)
			tt.setup(chunks)

			err := tt.call(&LocalStore{chunks: chunks, vectorSize: 2})
			if !errors.Is(err, boom) {
				t.Errorf("error = %v, want wrapped %v", err, boom)
			}
		})
	}
}

func TestLocalStore_SearchCorruptVector(t *testing.T) {
	ctrl := gomock.NewController(t)
	chunks := storage_mocks.NewMockChunkStore(ctrl)
	chunks.EXPECT().
		Each(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(*storage.ChunkRecord) error) error {
			return fn(&storage.ChunkRecord{ID: "bad:0:0", Embedding: []float32{1, 0, 0}})
		})

	_, err := (&LocalStore{chunks: chunks, vectorSize: 2}).Search(context.Background(), []float32{1, 0}, 1)
	if err == nil {
		t.Error("Search() expected error for a stored vector of the wrong size, got nil")
	}
}
