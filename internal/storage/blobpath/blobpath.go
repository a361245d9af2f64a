// Package blobpath builds backend-relative blob paths.
package blobpath

import (
	"fmt"
	"path"
	"strings"

	"docintake/internal/domain"
)

// Relocated returns the path p would have under prefix. The first segment of
// p names its current area and is replaced; everything below it is kept, so
// inbox/a/report.pdf and inbox/b/report.pdf stay distinct.
func Relocated(p, prefix string) (string, error) {
	clean := Clean(p)
	if clean == "" || clean == "." {
		return "", fmt.Errorf("%w: blob path %q", domain.ErrInvalidInput, p)
	}
	rel := clean
	if _, rest, ok := strings.Cut(clean, "/"); ok {
		rel = rest
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel, nil
	}
	return prefix + "/" + rel, nil
}

// Clean normalises p to a slash-separated path without a leading slash.
func Clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
