package scanner

import "context"

// Artifact represents a package file found in the pool
type Artifact struct {
	// Path is the absolute location of the file
	Path string

	// Name is the file name inside the pool
	Name string

	Size int64
}

// Scanner interface for discovering pool artifacts
type Scanner interface {
	// Scan lists the package artifacts in a pool directory
	Scan(ctx context.Context, dir string) ([]Artifact, error)
}
