package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ScannedFile represents a supported document found in the data directory.
type ScannedFile struct {
	RelPath string // Path relative to the data directory (e.g., "manual.pdf")
	AbsPath string
	Ext     string // Lower-cased extension including the dot
}

// Scan lists the supported files at the top level of the data directory in
// name order. A missing directory yields no files rather than an error.
func (l *Loader) Scan(ctx context.Context) ([]ScannedFile, error) {
	logger := getLogger(ctx)

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.WarnContext(ctx, "data directory does not exist", "dir", l.dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read data directory %s: %w", l.dir, err)
	}

	var files []ScannedFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext, ok := l.supported(entry.Name())
		if !ok {
			logger.DebugContext(ctx, "ignoring unsupported file", "name", entry.Name())
			continue
		}
		files = append(files, ScannedFile{
			RelPath: filepath.ToSlash(entry.Name()),
			AbsPath: filepath.Join(l.dir, entry.Name()),
			Ext:     ext,
		})
	}
	return files, nil
}
