package invoices

import "invoice-backend/internal/confidence"

// ExtractResponse is the body of a successful POST /extract.
type ExtractResponse struct {
	Success       bool              `json:"success"`
	InvoiceID     string            `json:"invoice_id"`
	UserID        string            `json:"user_id"`
	ExtractedData map[string]any    `json:"extracted_data"`
	CanonicalData any               `json:"canonical_data"`
	Confidence    confidence.Scores `json:"confidence"`
	Status        string            `json:"status"`
	Valid         bool              `json:"valid"`
	Error         *string           `json:"error"`
	UsageStats    map[string]any    `json:"usage_stats"`
	Timestamp     string            `json:"timestamp"`
}

// StatusRequest is the body of PUT /invoices/:id/status.
type StatusRequest struct {
	Status     string `json:"status"`
	ApprovedBy string `json:"approved_by"`
}

// StatusResponse is the body of a successful status update.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ListResponse is the body of GET /invoices.
type ListResponse struct {
	Success  bool      `json:"success"`
	Count    int       `json:"count"`
	Invoices []Invoice `json:"invoices"`
}

// ReviewQueueResponse is the body of GET /review-queue.
type ReviewQueueResponse struct {
	Invoices []Invoice `json:"invoices"`
	Count    int       `json:"count"`
}
