// Package storage provides object storage for archived partitions.
package storage

import (
	"context"
	"errors"
	"io"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
)

// ObjectStorage abstracts object storage operations.
// Implementations include S3 and the local filesystem.
type ObjectStorage interface {
	// Put stores body under objectPath, replacing any existing object.
	// body is rewound before every attempt, so implementations may retry.
	Put(ctx context.Context, objectPath string, body io.ReadSeeker) error

	// Get copies the object at objectPath into w.
	// Returns ErrObjectNotFound if the object does not exist.
	Get(ctx context.Context, objectPath string, w io.Writer) error

	// List returns all object paths under the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
