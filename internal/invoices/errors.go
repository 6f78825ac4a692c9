package invoices

import (
	"errors"

	"invoice-backend/internal/claims"
)

var (
	ErrInvalidToken     = claims.ErrInvalidToken
	ErrExtractionFailed = errors.New("extraction failed")
	ErrInvalidStatus    = errors.New("invalid status value")
	ErrNotFound         = errors.New("invoice not found")
	ErrStorage          = errors.New("storage error")
	ErrUninitialized    = errors.New("database not initialized")
)

// ExtractionError carries the message reported by the extraction service or
// the transport failure that prevented a result.
type ExtractionError struct {
	Message string
}

func (e *ExtractionError) Error() string { return e.Message }
func (e *ExtractionError) Unwrap() error { return ErrExtractionFailed }
