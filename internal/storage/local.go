package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrPublicURLNotConfigured is returned when a public output URL is
// requested but no public base URL was configured.
var ErrPublicURLNotConfigured = errors.New("storage: public video URL is not configured")

// LocalStore implements Store using local disk. Outputs become publicly
// reachable through the HTTP server's /videos/ route, so OutputURL simply
// joins the configured public base URL with the output filename.
type LocalStore struct {
	uploadDir     string
	publicBaseURL string
}

// NewLocalStore creates a new LocalStore. The upload directory is created
// if it doesn't exist. publicBaseURL may be empty when publishing is not
// used.
func NewLocalStore(uploadDir, publicBaseURL string) (*LocalStore, error) {
	if uploadDir == "" {
		return nil, errors.New("storage: upload directory is required")
	}
	if err := os.MkdirAll(uploadDir, 0750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{
		uploadDir:     uploadDir,
		publicBaseURL: publicBaseURL,
	}, nil
}

// UploadDir returns the upload directory path.
func (s *LocalStore) UploadDir() string {
	return s.uploadDir
}

// SaveUpload saves data to a uniquely named file in the upload directory.
// A "*" in the name marks where the random portion goes, so extensions
// survive ("top_*.mp4"); without one the randomness is appended.
func (s *LocalStore) SaveUpload(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	pattern := name
	if !strings.Contains(pattern, "*") {
		pattern += "_*"
	}

	f, err := os.CreateTemp(s.uploadDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return fileName, nil
}

// Cleanup removes the specified files, continuing past individual
// failures and returning the first error encountered.
func (s *LocalStore) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// OutputURL joins the public base URL with the output filename. The file
// itself is served by the HTTP layer from the output directory.
func (s *LocalStore) OutputURL(_ context.Context, _ string, filename string) (string, error) {
	if s.publicBaseURL == "" {
		return "", ErrPublicURLNotConfigured
	}
	base := s.publicBaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + filename, nil
}

// Compile-time check that LocalStore implements Store.
var _ Store = (*LocalStore)(nil)
