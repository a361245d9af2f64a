package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintake/internal/domain"
	"docintake/internal/port"
	"docintake/internal/storage/local"
)

func upload(t *testing.T, store port.BlobStore, path, body string) {
	t.Helper()
	err := store.Upload(context.Background(), port.UploadInput{
		Path:        path,
		Body:        bytes.NewBufferString(body),
		ContentType: "application/pdf",
		Size:        int64(len(body)),
	})
	require.NoError(t, err)
}

func TestBlobStore_UploadDownload(t *testing.T) {
	store, err := local.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	upload(t, store, "inbox/statement.pdf", "%PDF-1.7")

	ok, err := store.Exists(ctx, "inbox/statement.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.Download(ctx, "inbox/statement.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestBlobStore_DownloadMissing(t *testing.T) {
	store, err := local.NewBlobStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "inbox/none.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBlobStore_Relocate(t *testing.T) {
	root := t.TempDir()
	store, err := local.NewBlobStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	upload(t, store, "inbox/2024/bbc.pdf", "data")

	moved, err := store.Relocate(ctx, "inbox/2024/bbc.pdf", "complete")
	require.NoError(t, err)
	assert.Equal(t, "complete/2024/bbc.pdf", moved)

	ok, err := store.Exists(ctx, "inbox/2024/bbc.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(filepath.Join(root, "complete", "2024", "bbc.pdf"))
	assert.NoError(t, err)

	_, err = store.Relocate(ctx, "inbox/2024/bbc.pdf", "failed")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBlobStore_PathsStayUnderRoot(t *testing.T) {
	root := t.TempDir()
	store, err := local.NewBlobStore(filepath.Join(root, "blobs"))
	require.NoError(t, err)

	upload(t, store, "../../escape.pdf", "x")

	_, err = os.Stat(filepath.Join(root, "escape.pdf"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "blobs", "escape.pdf"))
	assert.NoError(t, err)
}

func TestBlobStore_DeleteIsIdempotent(t *testing.T) {
	store, err := local.NewBlobStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	upload(t, store, "inbox/a.pdf", "x")
	require.NoError(t, store.Delete(ctx, "inbox/a.pdf"))
	require.NoError(t, store.Delete(ctx, "inbox/a.pdf"))

	ok, err := store.Exists(ctx, "inbox/a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobStore_RejectsEmptyPath(t *testing.T) {
	store, err := local.NewBlobStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "/")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
