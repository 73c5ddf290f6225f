package extractor

import (
	"context"

	"github.com/debrepo/debrepo/internal/models"
)

// Extractor yields package metadata from a pool artifact
type Extractor interface {
	// Extract reads one artifact and returns its metadata. The returned
	// package carries control fields, size and digests; the caller decides
	// the repository-relative Filename.
	Extract(ctx context.Context, path string) (*models.Package, error)
}
