// Package storage provides file storage for uploaded clips and composed
// outputs. It defines the Store port plus local-disk and S3-backed
// implementations. The publish pipeline only needs a URL-producing handle
// for an output artifact; how the artifact becomes publicly reachable is
// this package's concern.
package storage

import (
	"context"
	"io"
)

// Store defines the interface for artifact storage.
type Store interface {
	// SaveUpload saves data to the upload area and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveUpload(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Cleanup removes the specified files. It continues even if some
	// files fail to delete, returning the first error encountered.
	Cleanup(ctx context.Context, paths []string) error

	// OutputURL returns a publicly reachable URL for the composed output
	// at path, published under filename. Implementations may upload the
	// file to remote storage to make it reachable.
	OutputURL(ctx context.Context, path, filename string) (string, error)
}
