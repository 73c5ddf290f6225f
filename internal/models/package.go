package models

// Package represents one pool artifact with its extracted metadata
type Package struct {
	// Core control fields
	Name         string
	Version      string
	Architecture string
	Maintainer   string
	Section      string
	Priority     string
	Homepage     string
	Depends      []string
	Description  string

	// Remaining control fields, keyed by field name
	Fields map[string]string

	// File information; Filename is relative to the repository root
	Filename  string
	Size      int64
	MD5Sum    string
	SHA1Sum   string
	SHA256Sum string
}
