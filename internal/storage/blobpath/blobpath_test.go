package blobpath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintake/internal/domain"
	"docintake/internal/storage/blobpath"
)

func TestRelocated(t *testing.T) {
	tests := []struct {
		path, prefix, want string
	}{
		{"inbox/statement.pdf", "complete", "complete/statement.pdf"},
		{"inbox/2024/06/bbc.pdf", "failed/", "failed/2024/06/bbc.pdf"},
		{"/inbox/a.pdf", "/archive/", "archive/a.pdf"},
		{"a.pdf", "", "a.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := blobpath.Relocated(tt.path, tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelocated_KeepsNestedPathsDistinct(t *testing.T) {
	a, err := blobpath.Relocated("inbox/a/report.pdf", "complete")
	require.NoError(t, err)
	b, err := blobpath.Relocated("inbox/b/report.pdf", "complete")
	require.NoError(t, err)

	assert.Equal(t, "complete/a/report.pdf", a)
	assert.Equal(t, "complete/b/report.pdf", b)
}

func TestRelocated_RejectsEmpty(t *testing.T) {
	_, err := blobpath.Relocated("", "complete")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "inbox/a.pdf", blobpath.Clean("/inbox//a.pdf"))
	assert.Equal(t, "a.pdf", blobpath.Clean("../../a.pdf"))
}
