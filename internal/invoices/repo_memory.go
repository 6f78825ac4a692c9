package invoices

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores invoices in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	seq  int64
	byID map[string]*memoryEntry
}

type memoryEntry struct {
	seq int64
	inv Invoice
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]*memoryEntry)}
}

// Save stores the invoice.
func (r *MemoryRepo) Save(ctx context.Context, inv Invoice) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.byID[inv.ID] = &memoryEntry{seq: r.seq, inv: inv}
	return inv.ID, nil
}

// UpdateStatus applies the update to the invoice with the given id.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, update StatusUpdate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byID[id]
	if !ok {
		return 0, nil
	}
	update.Apply(&entry.inv)
	return 1, nil
}

// FindByUser returns the user's invoices newest first.
func (r *MemoryRepo) FindByUser(ctx context.Context, userID string, limit int) ([]Invoice, error) {
	return r.find(ctx, limit, true, func(inv Invoice) bool { return inv.UserID == userID })
}

// FindReviewQueue returns needs_review invoices oldest first.
func (r *MemoryRepo) FindReviewQueue(ctx context.Context, limit int) ([]Invoice, error) {
	return r.find(ctx, limit, false, func(inv Invoice) bool { return inv.Status == StatusNeedsReview })
}

// AggregateAnalytics summarizes all invoices.
func (r *MemoryRepo) AggregateAnalytics(ctx context.Context) (Analytics, error) {
	if err := ctx.Err(); err != nil {
		return Analytics{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	byStatus := map[string]*statusAggregate{}
	for _, entry := range r.byID {
		inv := entry.inv
		agg, ok := byStatus[inv.Status]
		if !ok {
			agg = &statusAggregate{Status: inv.Status}
			byStatus[inv.Status] = agg
		}
		agg.Count++
		agg.ConfidenceSum += inv.ConfidenceScores.Overall
		if inv.CanonicalData.Total != nil {
			agg.AmountSum += *inv.CanonicalData.Total
		}
	}
	rows := make([]statusAggregate, 0, len(byStatus))
	for _, agg := range byStatus {
		rows = append(rows, *agg)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Status < rows[j].Status })
	return buildAnalytics(rows), nil
}

func (r *MemoryRepo) find(ctx context.Context, limit int, newestFirst bool, match func(Invoice) bool) ([]Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	entries := make([]*memoryEntry, 0)
	for _, entry := range r.byID {
		if match(entry.inv) {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.inv.CreatedAt.Equal(b.inv.CreatedAt) {
			if newestFirst {
				return a.inv.CreatedAt.After(b.inv.CreatedAt)
			}
			return a.inv.CreatedAt.Before(b.inv.CreatedAt)
		}
		if newestFirst {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]Invoice, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.inv)
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
