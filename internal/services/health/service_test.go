package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStatusPayload(t *testing.T) {
	svc := NewService("2.1.0", nil)
	svc.Now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	got := svc.Status(context.Background())
	want := Status{Status: "healthy", Service: "invoice-extractor", Version: "2.1.0", Timestamp: "2025-01-02T03:04:05Z"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestStatusReportsDatabase(t *testing.T) {
	ok := NewService("v", pingFunc(func(context.Context) error { return nil }))
	if got := ok.Status(context.Background()).Database; got != "ok" {
		t.Fatalf("expected ok, got %q", got)
	}
	down := NewService("v", pingFunc(func(context.Context) error { return errors.New("refused") }))
	st := down.Status(context.Background())
	if st.Database != "unavailable" || st.Status != "healthy" {
		t.Fatalf("unexpected status %+v", st)
	}
}
