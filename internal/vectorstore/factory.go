package vectorstore

import (
	"fmt"

	"ragsync/internal/config"
)

// NewOpener returns the Opener for the configured backend.
func NewOpener(cfg *config.Config) (Opener, error) {
	switch cfg.StoreBackend {
	case config.BackendLocal:
		return NewLocalOpener(cfg.StorePath, cfg.VectorSize), nil
	case config.BackendQdrant:
		return NewQdrantOpener(cfg.QdrantURL, cfg.QdrantCollection, cfg.VectorSize), nil
	case config.BackendMemory:
		return NewMemoryOpener(cfg.VectorSize), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
