package storage

import (
	"fmt"

	"docvault/internal/config"
)

// New resolves the configured storage backend. Dispatch happens exactly once
// here, at repository initialization; an unknown discriminator is a
// configuration constraint violation.
func New(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case BackendLocal:
		return NewLocal(cfg.Path)
	case BackendS3:
		return NewMinIO(cfg.MinIO)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
