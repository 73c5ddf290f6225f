package models

import (
	"errors"
	"fmt"
)

// ErrorKind represents different categories of errors
type ErrorKind int

const (
	ErrEmptyPool ErrorKind = iota
	ErrMetadataExtract
	ErrIndexInconsistent
	ErrSigningUnavailable
	ErrSigningIdentity
	ErrSigningFailed
	ErrVerificationFailed
	ErrInvalidConfig
	ErrFileOp
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case ErrEmptyPool:
		return "EmptyPool"
	case ErrMetadataExtract:
		return "MetadataExtract"
	case ErrIndexInconsistent:
		return "IndexInconsistent"
	case ErrSigningUnavailable:
		return "SigningUnavailable"
	case ErrSigningIdentity:
		return "SigningIdentity"
	case ErrSigningFailed:
		return "SigningFailed"
	case ErrVerificationFailed:
		return "VerificationFailed"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrFileOp:
		return "FileOp"
	default:
		return "Unknown"
	}
}

// Stage returns the pipeline stage an error kind belongs to
func (k ErrorKind) Stage() string {
	switch k {
	case ErrEmptyPool, ErrMetadataExtract:
		return "index"
	case ErrIndexInconsistent:
		return "release"
	case ErrSigningUnavailable, ErrSigningIdentity, ErrSigningFailed:
		return "sign"
	case ErrVerificationFailed:
		return "verify"
	default:
		return "setup"
	}
}

// RepoError represents an error during repository building
type RepoError struct {
	Kind     ErrorKind
	Artifact string
	Err      error
}

// Error implements the error interface
func (e *RepoError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Kind.Stage(), e.Kind, e.Artifact, e.Err)
	}
	return fmt.Sprintf("[%s/%s] %v", e.Kind.Stage(), e.Kind, e.Err)
}

// Unwrap returns the wrapped error
func (e *RepoError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a RepoError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var re *RepoError
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}
