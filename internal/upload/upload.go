// Package upload validates invoice files before they are sent for extraction.
package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"invoice-backend/internal/imagequality"
)

// DefaultMaxFileSize is the upload size limit when none is configured.
const DefaultMaxFileSize int64 = 16 << 20

var (
	ErrMissingFile   = errors.New("missing file")
	ErrFileTooLarge  = errors.New("file too large")
	ErrQualityFailed = errors.New("quality check failed")
)

// File is an upload read fully into memory. Later stages reuse Data directly.
type File struct {
	Filename string
	Data     []byte
}

// Extension returns the lower-cased extension including the dot.
func (f *File) Extension() string {
	if f == nil {
		return ""
	}
	return strings.ToLower(filepath.Ext(f.Filename))
}

// IsPDF reports whether the file is exempt from the image quality check.
func (f *File) IsPDF() bool {
	return f.Extension() == ".pdf"
}

// MissingFileError distinguishes an absent form field from an empty filename.
type MissingFileError struct {
	Message string
}

func (e *MissingFileError) Error() string { return e.Message }
func (e *MissingFileError) Unwrap() error { return ErrMissingFile }

// FileTooLargeError carries the rejected size.
type FileTooLargeError struct {
	Size int64
}

func (e *FileTooLargeError) Error() string { return fmt.Sprintf("File too large (%d bytes)", e.Size) }
func (e *FileTooLargeError) Unwrap() error { return ErrFileTooLarge }

// QualityError carries the failed check and its metric.
type QualityError struct {
	Reason string
	Score  float64
}

func (e *QualityError) Error() string { return "Quality Check Failed: " + e.Reason }
func (e *QualityError) Unwrap() error { return ErrQualityFailed }

// QualityChecker evaluates image bytes.
type QualityChecker interface {
	Check(data []byte) imagequality.Result
}

// Validator enforces presence, size and quality constraints in that order.
type Validator struct {
	MaxFileSize int64
	Quality     QualityChecker
}

// NewValidator constructs a Validator. A non-positive maxSize selects the default.
func NewValidator(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Validator{MaxFileSize: maxSize, Quality: imagequality.NewChecker()}
}

// Validate returns nil when the file may be sent for extraction.
func (v *Validator) Validate(f *File) error {
	if f == nil {
		return &MissingFileError{Message: "No file provided"}
	}
	if f.Filename == "" {
		return &MissingFileError{Message: "No file selected"}
	}
	if size := int64(len(f.Data)); size > v.maxSize() {
		return &FileTooLargeError{Size: size}
	}
	if f.IsPDF() || v.Quality == nil {
		return nil
	}
	if res := v.Quality.Check(f.Data); res.Bad {
		return &QualityError{Reason: res.Reason, Score: res.Score}
	}
	return nil
}

func (v *Validator) maxSize() int64 {
	if v.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return v.MaxFileSize
}
