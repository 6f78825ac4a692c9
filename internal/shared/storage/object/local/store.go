// Package local keeps archived objects on the filesystem for development.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"invoice-backend/internal/shared/storage/object"
)

var errInvalidKey = errors.New("invalid storage key")

// Store roots every key under baseDir.
type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (object.Object, error) {
	return object.SaveNew(ctx, s, ownerID, fileName, r, s.now())
}

func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.path(storageKey)
	if err != nil {
		return nil, err
	}
	return os.Open(target)
}

// SaveWithKey writes through a temp file renamed into place, so readers never
// observe a partial object. The content type is not persisted.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, _ string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	target, err := s.path(storageKey)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), target)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", storageKey, err)
	}
	return n, nil
}

// path maps a slash-separated key below baseDir, rejecting keys that escape it.
func (s *Store) path(storageKey string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(storageKey))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errInvalidKey
	}
	return filepath.Join(s.baseDir, rel), nil
}

var _ object.ObjectStore = (*Store)(nil)
