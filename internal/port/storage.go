package port

import (
	"context"
	"io"
)

// UploadInput encapsulates the parameters needed to upload a blob.
type UploadInput struct {
	Path        string
	Body        io.Reader
	ContentType string
	Size        int64
}

// BlobStore abstracts the document blob backend. Paths are backend-relative,
// e.g. "inbox/statement.pdf".
type BlobStore interface {
	Upload(ctx context.Context, input UploadInput) error
	Download(ctx context.Context, path string) ([]byte, error)
	// Relocate moves the blob at path from its current area to newPrefix,
	// keeping the path below the area, and returns the new path.
	Relocate(ctx context.Context, path, newPrefix string) (string, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}
