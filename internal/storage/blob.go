package storage

import (
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBadKey   = errors.New("invalid blob key")
	ErrNotFound = errors.New("blob not found")
)

// BlobStore holds uploaded submission files.
type BlobStore interface {
	Put(key string, r io.Reader) (int64, error)
	Get(key string) (io.ReadCloser, error)
	// URL is the API path the blob is served from.
	URL(key string) string
}

// NewKey builds a unique key for an uploaded file, grouped by day and
// keeping the original extension.
func NewKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}

// CleanKey rejects absolute keys and keys that escape the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrBadKey
	}
	c := path.Clean(key)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrBadKey
	}
	return c, nil
}
