// Package blob stores uploaded files such as honor receipts.
//
// Two drivers exist: a local filesystem tree for development and single-node
// deployments, and any S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Sentinel errors shared by every driver.
var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Info describes a stored object.
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is a flat key/value object store.
type Store interface {
	// Put writes r under key, replacing any existing object.
	// PRE: key is a relative slash-separated path without ".." segments
	// POST: Get(key) returns the written bytes
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)

	// Get opens the object under key. The caller closes the reader.
	// POST: returns ErrNotFound when the key does not exist
	Get(ctx context.Context, key string) (io.ReadCloser, Info, error)

	// Delete removes the object under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// CleanKey validates key and returns its canonical form.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return path.Clean(key), nil
}

// SafeFileName reduces an uploaded file name to a key-safe base name.
func SafeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "receipt"
	}
	return out
}
