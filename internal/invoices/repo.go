package invoices

import "context"

// Repo defines persistence operations for invoices.
type Repo interface {
	Save(ctx context.Context, inv Invoice) (string, error)
	// UpdateStatus returns the number of records matched by id.
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) (int64, error)
	// FindByUser returns the user's invoices newest first.
	FindByUser(ctx context.Context, userID string, limit int) ([]Invoice, error)
	// FindReviewQueue returns needs_review invoices oldest first.
	FindReviewQueue(ctx context.Context, limit int) ([]Invoice, error)
	AggregateAnalytics(ctx context.Context) (Analytics, error)
}
