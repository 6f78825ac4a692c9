package invoices

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"invoice-backend/internal/llm"
)

type fakeLLM struct {
	mu     sync.Mutex
	docs   []llm.Document
	result map[string]any
	err    error
}

func (f *fakeLLM) Extract(ctx context.Context, doc llm.Document) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]any, len(f.result))
	for k, v := range f.result {
		out[k] = v
	}
	return out, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

// countingRepo records calls that would mutate the store.
type countingRepo struct {
	*MemoryRepo
	saves   int
	updates int
}

func (r *countingRepo) Save(ctx context.Context, inv Invoice) (string, error) {
	r.saves++
	return r.MemoryRepo.Save(ctx, inv)
}

func (r *countingRepo) UpdateStatus(ctx context.Context, id string, u StatusUpdate) (int64, error) {
	r.updates++
	return r.MemoryRepo.UpdateStatus(ctx, id, u)
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func sampleFields() map[string]any {
	return map[string]any{
		"invoice_number": "INV-1",
		"invoice_date":   "2025-01-01",
		"due_date":       "2025-01-31",
		"vendor_name":    "Acme",
		"customer_name":  "Globex",
		"currency":       "USD",
		"subtotal":       100.0,
		"tax":            10.0,
		"total":          110.0,
		"line_items": []any{
			map[string]any{"description": "work", "amount": 100.0},
		},
		"_usage": map[string]any{"total_tokens": 42.0},
	}
}

func newTestService(repo Repo, client llm.Client) *Service {
	return &Service{Repo: repo, LLM: client, Now: newStepClock().Now}
}

func pdfFile() []byte { return []byte("%PDF-1.4\n%") }

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func flatPNG(t *testing.T) []byte {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return encodePNG(t, img)
}

func checkerPNG(t *testing.T) []byte {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return encodePNG(t, img)
}
