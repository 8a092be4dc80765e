package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"ragsync/internal/contextutil"
)

// Page is one loaded unit of a document: a PDF page or a Word paragraph.
type Page struct {
	Source string // File name relative to the data directory, forward slashes
	Page   int    // Zero-based page (PDF) or paragraph (Word) index
	Text   string
}

// LoadError records a document that could not be read. It never stops a load.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Extractor returns the text units of a single file in document order.
// Blank units are kept so that indexes stay faithful to the document.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) ([]string, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, path string) ([]string, error) {
	return f(ctx, path)
}

// Result is the outcome of loading a data directory.
type Result struct {
	Files  int // Supported files found, including failed ones
	Pages  []Page
	Errors []*LoadError
}

// Loader reads every supported document in a directory.
type Loader struct {
	dir        string
	extractors map[string]Extractor
}

// New creates a Loader for dir with the PDF and Word extractors registered.
// Both .docx and .doc go to the Word extractor; legacy binary .doc files
// surface as load errors.
func New(dir string) *Loader {
	word := &WordExtractor{}
	return &Loader{
		dir: dir,
		extractors: map[string]Extractor{
			".pdf":  &PDFExtractor{},
			".docx": word,
			".doc":  word,
		},
	}
}

// Register sets the extractor for a file extension (including the dot).
func (l *Loader) Register(ext string, e Extractor) {
	l.extractors[strings.ToLower(ext)] = e
}

// Extensions returns the registered file extensions in sorted order.
func (l *Loader) Extensions() []string {
	exts := make([]string, 0, len(l.extractors))
	for ext := range l.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// Load scans the directory and extracts every supported file.
// Per-file failures are collected in Result.Errors and the file is skipped.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	logger := getLogger(ctx)

	files, err := l.Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Files: len(files)}
	for _, file := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pages, err := l.loadFile(ctx, file)
		if err != nil {
			loadErr := &LoadError{Source: file.RelPath, Err: err}
			logger.WarnContext(ctx, "skipping unreadable document", "source", file.RelPath, "error", err)
			result.Errors = append(result.Errors, loadErr)
			continue
		}
		logger.DebugContext(ctx, "loaded document", "source", file.RelPath, "pages", len(pages))
		result.Pages = append(result.Pages, pages...)
	}

	logger.InfoContext(ctx, "documents loaded",
		"dir", l.dir,
		"files", result.Files,
		"pages", len(result.Pages),
		"errors", len(result.Errors),
	)
	return result, nil
}

func (l *Loader) loadFile(ctx context.Context, file ScannedFile) ([]Page, error) {
	extractor, ok := l.extractors[file.Ext]
	if !ok {
		return nil, fmt.Errorf("no extractor for %s", file.Ext)
	}

	units, err := extractor.Extract(ctx, file.AbsPath)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(units))
	for i, text := range units {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Source: file.RelPath, Page: i, Text: text})
	}
	return pages, nil
}

func (l *Loader) supported(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := l.extractors[ext]
	return ext, ok
}

func getLogger(ctx context.Context) *slog.Logger {
	return contextutil.LoggerFromContext(ctx)
}
