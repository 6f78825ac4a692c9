package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"invoice-backend/internal/extract"
)

const (
	// ErrorKey marks a raw result as a failed extraction.
	ErrorKey = "error"
	// UsageKey holds provider usage statistics inside a raw result.
	UsageKey = "_usage"
)

// Client abstracts extraction providers. The returned map holds the
// extracted invoice fields, optionally with ErrorKey and UsageKey entries.
type Client interface {
	Extract(ctx context.Context, doc Document) (map[string]any, error)
}

// Document is an upload encoded for the extraction service.
type Document struct {
	Filename    string
	ContentType string
	// DataURL is the base64 data URL of the original bytes.
	DataURL string
	// Text is the PDF text layer, when one could be read.
	Text  string
	Pages int
}

// Encode prepares an upload for extraction. PDFs with a readable text layer
// are sent as text; everything else is sent as a data URL. Encoding never
// fails on unreadable content: the extraction service decides.
func Encode(ctx context.Context, filename string, data []byte) Document {
	contentType := http.DetectContentType(data)
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		contentType = "application/pdf"
	}
	doc := Document{
		Filename:    filename,
		ContentType: contentType,
		DataURL:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
	if contentType == "application/pdf" {
		if parsed, err := extract.ReadPDF(ctx, data); err == nil || errors.Is(err, extract.ErrNoText) {
			doc.Text = parsed.Text
			doc.Pages = parsed.Pages
		}
	}
	return doc
}

// SplitUsage removes the usage sub-object from a raw result.
func SplitUsage(raw map[string]any) (fields map[string]any, usage map[string]any) {
	usage = map[string]any{}
	if u, ok := raw[UsageKey].(map[string]any); ok {
		usage = u
	}
	fields = make(map[string]any, len(raw))
	for k, v := range raw {
		if k == UsageKey {
			continue
		}
		fields[k] = v
	}
	return fields, usage
}

// ErrorMessage returns the error marker of a raw result, if present.
func ErrorMessage(raw map[string]any) (string, bool) {
	v, ok := raw[ErrorKey]
	if !ok {
		return "", false
	}
	switch msg := v.(type) {
	case string:
		return msg, true
	case map[string]any:
		if s, ok := msg["message"].(string); ok {
			return s, true
		}
	}
	return "extraction failed", true
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("extraction provider not configured")

// PlaceholderClient is used when LLM_PROVIDER=none.
type PlaceholderClient struct{}

// Extract returns ErrNotConfigured.
func (PlaceholderClient) Extract(ctx context.Context, doc Document) (map[string]any, error) {
	_ = ctx
	_ = doc
	return nil, ErrNotConfigured
}
