package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"invoice-backend/internal/shared/storage/object"
)

// TextSuffix is appended to an archived original's key for its text layer.
const TextSuffix = ".extracted.txt"

// ErrNoText is returned when a PDF parses but carries no text layer (scans).
var ErrNoText = errors.New("pdf has no text layer")

// PDF is the text layer and page count of a PDF invoice.
type PDF struct {
	Text  string
	Pages int
}

// ReadPDF parses an in-memory PDF with github.com/ledongthuc/pdf.
func ReadPDF(ctx context.Context, data []byte) (PDF, error) {
	if err := ctx.Err(); err != nil {
		return PDF{}, err
	}
	if len(data) == 0 {
		return PDF{}, errors.New("empty pdf data")
	}
	reader, err := openPDF(data)
	if err != nil {
		return PDF{}, fmt.Errorf("open pdf: %w", err)
	}
	out := PDF{Pages: reader.NumPage()}

	plain, err := reader.GetPlainText()
	if err != nil {
		return out, fmt.Errorf("pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return out, fmt.Errorf("pdf text: %w", err)
	}
	out.Text = strings.TrimSpace(buf.String())
	if out.Text == "" {
		return out, ErrNoText
	}
	return out, nil
}

// openPDF guards against panics the parser raises on truncated input.
func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// SaveText stores the text layer next to the archived original.
func SaveText(ctx context.Context, store object.ObjectStore, originalKey string, text string) (string, error) {
	key := originalKey + TextSuffix
	if _, err := store.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("save text key=%s: %w", key, err)
	}
	return key, nil
}
