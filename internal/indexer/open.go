package indexer

import (
	"context"
	"errors"

	"ragsync/internal/vectorstore"
)

// OpenStore opens the store behind opener. With reset the store is wiped
// first. If opening fails, the store is wiped and opened once more; a second
// failure is returned as a *StoreOpenError. A vector size mismatch is a
// configuration error, not corruption: it fails at once and the store is kept.
func OpenStore(ctx context.Context, opener vectorstore.Opener, reset bool) (vectorstore.VectorStore, error) {
	logger := getLogger(ctx)
	location := opener.Location()

	if reset {
		logger.InfoContext(ctx, "clearing store", "location", location)
		if err := opener.Wipe(ctx); err != nil {
			return nil, &StoreOpenError{Location: location, Err: err}
		}
	}

	store, err := opener.Open(ctx)
	if err == nil {
		return store, nil
	}
	if errors.Is(err, vectorstore.ErrVectorSizeMismatch) {
		logger.ErrorContext(ctx, "store was built for another vector size, run with --reset to rebuild it", "location", location, "error", err)
		return nil, &StoreOpenError{Location: location, Err: err}
	}

	logger.WarnContext(ctx, "failed to open store, clearing and retrying", "location", location, "error", err)
	if wipeErr := opener.Wipe(ctx); wipeErr != nil {
		logger.ErrorContext(ctx, "failed to clear store", "location", location, "error", wipeErr)
		return nil, &StoreOpenError{Location: location, Err: wipeErr}
	}

	store, err = opener.Open(ctx)
	if err != nil {
		return nil, &StoreOpenError{Location: location, Err: err}
	}
	logger.InfoContext(ctx, "store recreated", "location", location)
	return store, nil
}
