package invoices

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryRepoOrdersByCreatedAtThenInsertion(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	same := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, inv := range []Invoice{
		{ID: "a", UserID: "u", Status: StatusNeedsReview, CreatedAt: same},
		{ID: "b", UserID: "u", Status: StatusNeedsReview, CreatedAt: same},
		{ID: "c", UserID: "u", Status: StatusApproved, CreatedAt: same.Add(time.Minute)},
	} {
		if _, err := repo.Save(ctx, inv); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, _ := repo.FindByUser(ctx, "u", 0)
	if ids(got) != "c,b,a" {
		t.Fatalf("unexpected user order %s", ids(got))
	}
	queue, _ := repo.FindReviewQueue(ctx, 10)
	if ids(queue) != "a,b" {
		t.Fatalf("unexpected queue order %s", ids(queue))
	}
}

func TestMemoryRepoUpdateUnknownID(t *testing.T) {
	repo := NewMemoryRepo()
	matched, err := repo.UpdateStatus(context.Background(), "missing", StatusUpdate{Status: StatusApproved, At: time.Now()})
	if err != nil || matched != 0 {
		t.Fatalf("expected no match, got %d %v", matched, err)
	}
}

func TestMemoryRepoConcurrentUpdates(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := repo.Save(ctx, Invoice{ID: "a", UserID: "u", Status: StatusNeedsReview, CreatedAt: base, UpdatedAt: base}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := StatusApproved
			if i%2 == 0 {
				status = StatusRejected
			}
			_, _ = repo.UpdateStatus(ctx, "a", StatusUpdate{Status: status, At: base.Add(time.Duration(i) * time.Second)})
		}(i)
	}
	wg.Wait()

	got, _ := repo.FindByUser(ctx, "u", 1)
	inv := got[0]
	if inv.Status != inv.ConfidenceScores.Status {
		t.Fatalf("status views diverged: %q vs %q", inv.Status, inv.ConfidenceScores.Status)
	}
	if want := base.Add(20 * time.Second); !inv.UpdatedAt.Equal(want) {
		t.Fatalf("expected updated_at %s, got %s", want, inv.UpdatedAt)
	}
}

func TestMemoryRepoHonorsCancelledContext(t *testing.T) {
	repo := NewMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := repo.Save(ctx, Invoice{ID: "a"}); err == nil {
		t.Fatalf("expected context error")
	}
}

func ids(invoices []Invoice) string {
	out := ""
	for i, inv := range invoices {
		if i > 0 {
			out += ","
		}
		out += inv.ID
	}
	return out
}
