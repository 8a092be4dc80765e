// Package watch re-runs ingestion when documents in the data directory change.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ragsync/internal/contextutil"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches the top level of a directory and calls onChange once a
// burst of changes to supported files has settled. Calls never overlap.
type Watcher struct {
	dir        string
	extensions []string
	onChange   func(ctx context.Context)
	debounce   time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for dir. extensions filter which files trigger a
// change (case-insensitive, with or without the dot; empty means all).
func New(dir string, extensions []string, onChange func(ctx context.Context), opts ...Option) *Watcher {
	w := &Watcher{
		dir:        filepath.Clean(dir),
		extensions: extensions,
		onChange:   onChange,
		debounce:   defaultDebounce,
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once the directory is registered; events
// are handled in the background until ctx is cancelled or Stop is called.
// A missing directory is created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return errors.New("watcher already started")
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw

	ctx = contextutil.WithAttrs(ctx, "component", "watch")
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "watching data directory",
		"dir", w.dir,
		"extensions", w.extensions,
	)
	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for an in-flight onChange call to return.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	w.mu.Lock()
	started := w.watcher != nil
	w.mu.Unlock()
	if started {
		<-w.stopped
	}
}

func (w *Watcher) run(ctx context.Context) {
	logger := contextutil.LoggerFromContext(ctx)
	defer close(w.stopped)
	defer func() {
		_ = w.watcher.Close()
	}()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			logger.DebugContext(ctx, "watcher event", "op", ev.Op.String(), "path", ev.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			timer, fire = nil, nil
			logger.InfoContext(ctx, "data directory changed, re-running ingestion", "dir", w.dir)
			if w.onChange != nil {
				w.onChange(ctx)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.WarnContext(ctx, "watcher error", "error", err)
		}
	}
}

// relevant reports whether ev creates or modifies a supported file directly
// inside the watched directory. Removals never trigger a run: the store
// keeps records of deleted documents.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if filepath.Dir(filepath.Clean(ev.Name)) != w.dir {
		return false
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return false
	}
	return matchExtension(ev.Name, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
