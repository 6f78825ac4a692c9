package invoices

import (
	"math"
	"time"

	"invoice-backend/internal/canonical"
	"invoice-backend/internal/confidence"
)

// Review states a caller may set explicitly.
const (
	StatusApproved    = confidence.StatusApproved
	StatusRejected    = confidence.StatusRejected
	StatusNeedsReview = confidence.StatusNeedsReview
)

const (
	DefaultListLimit   = 50
	MaxListLimit       = 500
	ReviewQueueLimit   = 20
	metadataUsage      = "usage"
	metadataStorageKey = "storage_key"
)

// Invoice is a stored extraction. Status, ApprovedBy and ApprovedAt change
// only through a status update; records are never deleted.
type Invoice struct {
	ID               string            `json:"_id"`
	UserID           string            `json:"user_id"`
	ExtractedData    map[string]any    `json:"extracted_data"`
	CanonicalData    canonical.Invoice `json:"canonical_data"`
	ConfidenceScores confidence.Scores `json:"confidence_scores"`
	Status           string            `json:"status"`
	OriginalFilename string            `json:"original_filename"`
	Metadata         map[string]any    `json:"metadata"`
	ApprovedBy       *string           `json:"approved_by"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	ApprovedAt       *time.Time        `json:"approved_at"`
}

// StatusUpdate is applied atomically by Repo.UpdateStatus. ApprovedAt is At;
// UpdatedAt becomes max(UpdatedAt, At).
type StatusUpdate struct {
	Status     string
	ApprovedBy *string
	At         time.Time
}

// Apply mutates inv in place.
func (u StatusUpdate) Apply(inv *Invoice) {
	inv.Status = u.Status
	inv.ConfidenceScores.Status = u.Status
	inv.ApprovedBy = u.ApprovedBy
	at := u.At
	inv.ApprovedAt = &at
	if at.After(inv.UpdatedAt) {
		inv.UpdatedAt = at
	}
}

// Analytics summarizes every stored invoice.
type Analytics struct {
	TotalInvoices     int64            `json:"total_invoices"`
	ByStatus          map[string]int64 `json:"by_status"`
	AverageConfidence float64          `json:"average_confidence"`
	TotalAmount       float64          `json:"total_amount"`
	ApprovalRate      float64          `json:"approval_rate"`
}

// statusAggregate is one per-status row feeding Analytics.
type statusAggregate struct {
	Status        string
	Count         int64
	ConfidenceSum float64
	AmountSum     float64
}

func buildAnalytics(rows []statusAggregate) Analytics {
	out := Analytics{ByStatus: map[string]int64{
		StatusApproved:    0,
		StatusRejected:    0,
		StatusNeedsReview: 0,
	}}
	var confidenceSum float64
	for _, row := range rows {
		out.ByStatus[row.Status] += row.Count
		out.TotalInvoices += row.Count
		confidenceSum += row.ConfidenceSum
		out.TotalAmount += row.AmountSum
	}
	if out.TotalInvoices > 0 {
		out.AverageConfidence = round4(confidenceSum / float64(out.TotalInvoices))
		out.ApprovalRate = round4(float64(out.ByStatus[StatusApproved]) / float64(out.TotalInvoices))
	}
	out.TotalAmount = round2(out.TotalAmount)
	return out
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round4(f float64) float64 { return math.Round(f*1e4) / 1e4 }
