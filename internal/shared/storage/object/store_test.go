package object

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestNewKeyLayout(t *testing.T) {
	now := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
	key := NewKey("u1", "scan 1.png", now)
	parts := strings.Split(key, "/")
	if len(parts) != 5 {
		t.Fatalf("unexpected key %q", key)
	}
	if len(parts[0]) != 64 || parts[1] != "2025" || parts[2] != "03" || parts[3] != "04" {
		t.Fatalf("unexpected key prefix %q", key)
	}
	if !strings.HasSuffix(parts[4], "_scan 1.png") {
		t.Fatalf("unexpected file part %q", parts[4])
	}

	for _, name := range []string{"../etc/passwd", "invoice..v2.pdf", ""} {
		key := NewKey("u1", name, now)
		segs := strings.Split(key, "/")
		if len(segs) != 5 || strings.Contains(segs[4], "..") {
			t.Fatalf("NewKey(%q) escaped its namespace: %q", name, key)
		}
	}
}

func TestSniffReplaysHead(t *testing.T) {
	body := "%PDF-1.7\n" + strings.Repeat("x", 1000)
	ct, r, err := Sniff(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	counter := &CountingReader{R: r}
	got, _ := io.ReadAll(counter)
	if string(got) != body || counter.N != int64(len(body)) {
		t.Fatalf("replayed body mismatch: %d bytes", counter.N)
	}
}

type recordingWriter struct {
	key, contentType, body string
}

func (w *recordingWriter) SaveWithKey(_ context.Context, key, contentType string, r io.Reader) (int64, error) {
	b, err := io.ReadAll(r)
	w.key, w.contentType, w.body = key, contentType, string(b)
	return int64(len(b)), err
}

func TestSaveNewSniffsAndWrites(t *testing.T) {
	w := &recordingWriter{}
	now := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

	obj, err := SaveNew(context.Background(), w, "u1", "invoice.pdf", strings.NewReader("%PDF-1.4 body"), now)
	if err != nil {
		t.Fatalf("SaveNew: %v", err)
	}
	if obj.Key != w.key || obj.ContentType != "application/pdf" || obj.Size != 13 {
		t.Fatalf("unexpected object %+v", obj)
	}
	if w.body != "%PDF-1.4 body" {
		t.Fatalf("writer got %q", w.body)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := SaveNew(ctx, w, "u1", "a.pdf", strings.NewReader("x"), now); err == nil {
		t.Fatalf("expected context error")
	}
}
