package extract

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	localstore "invoice-backend/internal/shared/storage/object/local"
)

func TestReadPDFRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "ten bytes", data: []byte("%PDF-1.4\n%")},
		{name: "not a pdf", data: []byte("hello world, this is plain text")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadPDF(context.Background(), tt.data); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}

func TestReadPDFHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadPDF(ctx, []byte("%PDF-1.4")); err == nil {
		t.Fatal("expected context error")
	}
}

func TestSaveTextWritesSidecar(t *testing.T) {
	dir := t.TempDir()
	store := localstore.New(dir)

	key, err := SaveText(context.Background(), store, "abc/original.pdf", "INVOICE 42")
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	if key != "abc/original.pdf"+TextSuffix {
		t.Fatalf("unexpected key %q", key)
	}

	raw, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if string(raw) != "INVOICE 42" {
		t.Fatalf("unexpected sidecar contents %q", raw)
	}

	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if !strings.Contains(string(body), "42") {
		t.Fatalf("unexpected body %q", body)
	}
}
