// Package local stores blobs on the local filesystem. It backs development
// setups and the operator CLI.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"docintake/internal/domain"
	"docintake/internal/port"
	"docintake/internal/storage/blobpath"
)

type blobStore struct {
	root string
}

// NewBlobStore creates a BlobStore rooted at dir, creating it if needed.
func NewBlobStore(dir string) (port.BlobStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty storage root", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &blobStore{root: abs}, nil
}

func (s *blobStore) resolve(p string) (string, error) {
	clean := blobpath.Clean(p)
	if clean == "" {
		return "", fmt.Errorf("%w: blob path %q", domain.ErrInvalidInput, p)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *blobStore) Upload(ctx context.Context, input port.UploadInput) error {
	dst, err := s.resolve(input.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("local upload: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("local upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, input.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("local upload write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("local upload close: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("local upload: %w", err)
	}
	return nil
}

func (s *blobStore) Download(ctx context.Context, p string) ([]byte, error) {
	src, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("local download %s: %w", p, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("local download: %w", err)
	}
	return data, nil
}

func (s *blobStore) Relocate(ctx context.Context, p, newPrefix string) (string, error) {
	target, err := blobpath.Relocated(p, newPrefix)
	if err != nil {
		return "", err
	}
	src, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	dst, err := s.resolve(target)
	if err != nil {
		return "", err
	}
	if src == dst {
		return target, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("local relocate: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("local relocate %s: %w", p, domain.ErrNotFound)
		}
		return "", fmt.Errorf("local relocate: %w", err)
	}
	return target, nil
}

func (s *blobStore) Delete(ctx context.Context, p string) error {
	target, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local delete: %w", err)
	}
	return nil
}

func (s *blobStore) Exists(ctx context.Context, p string) (bool, error) {
	target, err := s.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("local exists: %w", err)
	}
	return !info.IsDir(), nil
}
