// Package gcs stores blobs in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"docintake/internal/config"
	"docintake/internal/domain"
	"docintake/internal/port"
	"docintake/internal/storage/blobpath"
)

// BlobStore is a port.BlobStore over one bucket.
type BlobStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewBlobStore opens a client for cfg.Bucket. Extra client options are
// appended after the credentials option.
func NewBlobStore(ctx context.Context, cfg config.GCSConfig, opts ...option.ClientOption) (*BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: gcs bucket not configured", domain.ErrInvalidInput)
	}
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	return &BlobStore{client: client, bucket: client.Bucket(cfg.Bucket)}, nil
}

// Close releases the underlying client.
func (s *BlobStore) Close() error {
	return s.client.Close()
}

func (s *BlobStore) Upload(ctx context.Context, input port.UploadInput) error {
	w := s.bucket.Object(blobpath.Clean(input.Path)).NewWriter(ctx)
	w.ContentType = input.ContentType
	if _, err := io.Copy(w, input.Body); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs upload finalize: %w", err)
	}
	return nil
}

func (s *BlobStore) Download(ctx context.Context, path string) ([]byte, error) {
	r, err := s.bucket.Object(blobpath.Clean(path)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gcs download %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("gcs download: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs download read: %w", err)
	}
	return data, nil
}

// Relocate copies the object under newPrefix and deletes the source. The
// copy is conditional on the target not existing, so a repeated relocation
// after a partial failure only finishes the delete.
func (s *BlobStore) Relocate(ctx context.Context, path, newPrefix string) (string, error) {
	target, err := blobpath.Relocated(path, newPrefix)
	if err != nil {
		return "", err
	}
	srcName := blobpath.Clean(path)
	if srcName == target {
		return target, nil
	}

	src := s.bucket.Object(srcName)
	dst := s.bucket.Object(target).If(storage.Conditions{DoesNotExist: true})
	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		switch {
		case isPreconditionFailed(err):
		case errors.Is(err, storage.ErrObjectNotExist):
			return "", fmt.Errorf("gcs relocate %s: %w", path, domain.ErrNotFound)
		default:
			return "", fmt.Errorf("gcs relocate copy: %w", err)
		}
	}
	if err := src.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("gcs relocate delete: %w", err)
	}
	return target, nil
}

func (s *BlobStore) Delete(ctx context.Context, path string) error {
	err := s.bucket.Object(blobpath.Clean(path)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete: %w", err)
	}
	return nil
}

func (s *BlobStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.bucket.Object(blobpath.Clean(path)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("gcs attrs: %w", err)
	}
	return true, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
