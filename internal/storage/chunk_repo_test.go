package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func record(id, source string, page, seq int, text string) *ChunkRecord {
	return &ChunkRecord{ID: id, Source: source, Page: page, Seq: seq, Text: text, Embedding: []float32{1, 0.5, -2}}
}

func TestChunkRepo_InsertIgnore(t *testing.T) {
	ctx := context.Background()
	repo := NewChunkRepo(newTestDB(t))

	tests := []struct {
		name         string
		chunks       []*ChunkRecord
		wantInserted int
		wantCount    int
	}{
		{
			name:         "empty batch",
			chunks:       nil,
			wantInserted: 0,
			wantCount:    0,
		},
		{
			name: "new chunks",
			chunks: []*ChunkRecord{
				record("a.pdf:0:0", "a.pdf", 0, 0, "first"),
				record("a.pdf:0:1", "a.pdf", 0, 1, "second"),
			},
			wantInserted: 2,
			wantCount:    2,
		},
		{
			name: "existing id is skipped",
			chunks: []*ChunkRecord{
				record("a.pdf:0:0", "a.pdf", 0, 0, "changed text"),
				record("a.pdf:1:0", "a.pdf", 1, 0, "third"),
			},
			wantInserted: 1,
			wantCount:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.InsertIgnore(ctx, tt.chunks)
			if err != nil {
				t.Fatalf("InsertIgnore() error = %v", err)
			}
			if got != tt.wantInserted {
				t.Errorf("InsertIgnore() = %d, want %d", got, tt.wantInserted)
			}
			count, err := repo.Count(ctx)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if count != tt.wantCount {
				t.Errorf("Count() = %d, want %d", count, tt.wantCount)
			}
		})
	}

	texts := map[string]string{}
	if err := repo.Each(ctx, func(c *ChunkRecord) error {
		texts[c.ID] = c.Text
		return nil
	}); err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	if texts["a.pdf:0:0"] != "first" {
		t.Errorf("existing chunk was modified: text = %q, want %q", texts["a.pdf:0:0"], "first")
	}
}

func TestChunkRepo_ListIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewChunkRepo(newTestDB(t))

	ids, err := repo.ListIDs(ctx)
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("ListIDs() on empty store = %v, want empty slice", ids)
	}

	if _, err := repo.InsertIgnore(ctx, []*ChunkRecord{
		record("b.docx:3:0", "b.docx", 3, 0, "x"),
		record("a.pdf:0:0", "a.pdf", 0, 0, "y"),
	}); err != nil {
		t.Fatalf("InsertIgnore() error = %v", err)
	}

	ids, err = repo.ListIDs(ctx)
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	want := []string{"b.docx:3:0", "a.pdf:0:0"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ListIDs() = %v, want %v", ids, want)
	}
}

func TestChunkRepo_EachAndDeleteAll(t *testing.T) {
	ctx := context.Background()
	repo := NewChunkRepo(newTestDB(t))

	if _, err := repo.InsertIgnore(ctx, []*ChunkRecord{
		record("a.pdf:0:0", "a.pdf", 0, 0, "x"),
		record("a.pdf:0:1", "a.pdf", 0, 1, "y"),
	}); err != nil {
		t.Fatalf("InsertIgnore() error = %v", err)
	}

	var seen []*ChunkRecord
	if err := repo.Each(ctx, func(c *ChunkRecord) error {
		seen = append(seen, c)
		return nil
	}); err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	if len(seen) != 2 || seen[0].ID != "a.pdf:0:0" || seen[1].ID != "a.pdf:0:1" {
		t.Fatalf("Each() visited %+v", seen)
	}
	if got := seen[1]; got.Source != "a.pdf" || got.Page != 0 || got.Seq != 1 || got.Text != "y" {
		t.Errorf("Each() record = %+v", got)
	}
	if !reflect.DeepEqual(seen[0].Embedding, []float32{1, 0.5, -2}) {
		t.Errorf("Each() embedding = %v, want [1 0.5 -2]", seen[0].Embedding)
	}

	stop := errors.New("stop")
	if err := repo.Each(ctx, func(*ChunkRecord) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("Each() error = %v, want %v", err, stop)
	}

	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("Count() after DeleteAll = %d, want 0", n)
	}
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0, 1.25, -3.5, 1e-7}
	got, err := DecodeVector(EncodeVector(vec))
	if err != nil {
		t.Fatalf("DecodeVector() error = %v", err)
	}
	if !reflect.DeepEqual(got, vec) {
		t.Errorf("DecodeVector(EncodeVector()) = %v, want %v", got, vec)
	}

	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("DecodeVector() should reject a truncated blob")
	}
}
