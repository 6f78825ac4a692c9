// Package object archives uploaded invoice originals and derived artifacts.
package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"invoice-backend/internal/shared/util"
)

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Save stores r under a generated key in the owner's namespace.
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (Object, error)
	// SaveWithKey stores r at an exact key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// NewKey builds "<owner hash>/<yyyy/mm/dd>/<random>_<name>" for an upload.
// The name is flattened to one segment, so any upload name yields a valid key.
func NewKey(ownerID, fileName string, now time.Time) string {
	name := util.SanitizeFileName(fileName)
	return path.Join(util.HashUserKey(ownerID), now.UTC().Format("2006/01/02"), util.RandomID()+"_"+name)
}

// Sniff reads up to 512 bytes for content detection and returns a reader
// replaying them ahead of the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	buf := append([]byte(nil), head[:n]...)
	return http.DetectContentType(buf), io.MultiReader(bytes.NewReader(buf), r), nil
}

// KeyWriter stores a body at an exact key and reports the bytes written.
type KeyWriter interface {
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
}

// SaveNew writes r through w under a fresh key in ownerID's namespace,
// recording the sniffed content type.
func SaveNew(ctx context.Context, w KeyWriter, ownerID, fileName string, r io.Reader, now time.Time) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	key := NewKey(ownerID, fileName, now)
	contentType, body, err := Sniff(r)
	if err != nil {
		return Object{}, fmt.Errorf("sniff content type: %w", err)
	}
	size, err := w.SaveWithKey(ctx, key, contentType, body)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, Size: size, ContentType: contentType}, nil
}
