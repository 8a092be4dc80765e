package indexer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoInput is returned by Pipeline.Run when the data directory holds no
// supported documents. The store is left untouched.
var ErrNoInput = errors.New("no input documents found")

// StoreOpenError reports a store that could not be opened even after one
// wipe-and-retry. It is fatal for the run.
type StoreOpenError struct {
	Location string
	Err      error
}

func (e *StoreOpenError) Error() string {
	return fmt.Sprintf("failed to open store at %s: %v", e.Location, e.Err)
}

func (e *StoreOpenError) Unwrap() error {
	return e.Err
}

// StoreWriteError reports chunks that failed to embed or persist.
type StoreWriteError struct {
	ChunkIDs []string
	Err      error
}

func (e *StoreWriteError) Error() string {
	if len(e.ChunkIDs) == 1 {
		return fmt.Sprintf("failed to write chunk %s: %v", e.ChunkIDs[0], e.Err)
	}
	return fmt.Sprintf("failed to write %d chunks [%s]: %v", len(e.ChunkIDs), strings.Join(e.ChunkIDs, ", "), e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}
