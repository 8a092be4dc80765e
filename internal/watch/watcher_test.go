package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func startWatcher(t *testing.T, dir string, onChange func(ctx context.Context)) *Watcher {
	t.Helper()
	w := New(dir, []string{".pdf", "docx", ".DOC"}, onChange, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	calls := make(chan struct{}, 10)
	startWatcher(t, dir, func(ctx context.Context) {
		calls <- struct{}{}
	})

	writeFile(t, filepath.Join(dir, "a.pdf"), "one")
	writeFile(t, filepath.Join(dir, "a.pdf"), "two")
	writeFile(t, filepath.Join(dir, "B.DOCX"), "three")

	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("onChange was not called")
	}

	select {
	case <-calls:
		t.Error("burst of writes should produce a single onChange call")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, dir, func(ctx context.Context) {
		calls.Add(1)
	})

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("onChange called %d times, want 0", got)
	}
}

func TestWatcher_CallsDoNotOverlap(t *testing.T) {
	dir := t.TempDir()
	var active, maxActive, total atomic.Int32
	startWatcher(t, dir, func(ctx context.Context) {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(150 * time.Millisecond)
		active.Add(-1)
		total.Add(1)
	})

	writeFile(t, filepath.Join(dir, "a.pdf"), "one")
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "b.pdf"), "two")

	deadline := time.Now().Add(3 * time.Second)
	for total.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := total.Load(); got != 2 {
		t.Fatalf("onChange called %d times, want 2", got)
	}
	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent onChange calls = %d, want 1", got)
	}
}

func TestWatcher_StartCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	startWatcher(t, dir, nil)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("Start() should create %s, stat error = %v", dir, err)
	}
}

func TestWatcher_StartTwice(t *testing.T) {
	w := startWatcher(t, t.TempDir(), nil)
	if err := w.Start(context.Background()); err == nil {
		t.Error("second Start() expected error, got nil")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w := New(t.TempDir(), nil, nil)
	w.Stop()
	w.Stop()
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{path: "a.pdf", extensions: []string{".pdf"}, want: true},
		{path: "A.PDF", extensions: []string{".pdf"}, want: true},
		{path: "a.docx", extensions: []string{"docx"}, want: true},
		{path: "a.doc", extensions: []string{".docx"}, want: false},
		{path: "a.txt", extensions: []string{".pdf", ".docx"}, want: false},
		{path: "a.txt", extensions: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := matchExtension(tt.path, tt.extensions); got != tt.want {
				t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
			}
		})
	}
}
