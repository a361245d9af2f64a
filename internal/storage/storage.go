// Package storage selects the configured blob backend.
package storage

import (
	"context"
	"fmt"
	"io"

	"docintake/internal/config"
	"docintake/internal/domain"
	"docintake/internal/port"
	"docintake/internal/storage/gcs"
	"docintake/internal/storage/local"
	s3store "docintake/internal/storage/s3"
)

// New opens the blob store named by cfg.Storage.Backend. The returned closer
// releases backend clients and is never nil.
func New(ctx context.Context, cfg *config.Config) (port.BlobStore, io.Closer, error) {
	switch cfg.Storage.Backend {
	case "s3":
		store, err := s3store.NewS3Client(ctx, &cfg.S3)
		return store, nopCloser{}, err
	case "gcs":
		store, err := gcs.NewBlobStore(ctx, cfg.GCS)
		if err != nil {
			return nil, nopCloser{}, err
		}
		return store, store, nil
	case "local":
		store, err := local.NewBlobStore(cfg.Storage.LocalPath)
		return store, nopCloser{}, err
	}
	return nil, nopCloser{}, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, cfg.Storage.Backend)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
