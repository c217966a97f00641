package domain

import (
	"github.com/allisson/envoy-gateway/internal/errors"
)

// Device-specific error definitions.
var (
	// ErrStorageFailed indicates a storage collaborator rejected or timed out a write.
	// Unmapped by the HTTP layer, so it surfaces as 500.
	ErrStorageFailed = errors.New("storage write failed")

	// ErrInvalidFilename indicates the ingest filename cannot be used as an object name.
	ErrInvalidFilename = errors.Wrap(errors.ErrInvalidInput, "invalid filename")
)
