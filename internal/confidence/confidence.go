// Package confidence estimates how trustworthy a canonical invoice is and
// derives its initial review status.
package confidence

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"invoice-backend/internal/canonical"
)

// Review states.
const (
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusNeedsReview = "needs_review"
)

const (
	DefaultApproveAt   = 0.9
	DefaultRejectBelow = 0.5

	scoreWellFormed = 1.0
	scoreMalformed  = 0.5
	scoreMissing    = 0.0
)

// Weights sum to 1.
var weights = map[string]float64{
	"invoice_number": 0.15,
	"invoice_date":   0.10,
	"due_date":       0.05,
	"vendor_name":    0.15,
	"customer_name":  0.05,
	"currency":       0.05,
	"subtotal":       0.10,
	"tax":            0.05,
	"total":          0.20,
	"line_items":     0.05,
	"consistency":    0.05,
}

var (
	invoiceNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-/_.#]*$`)
	datePattern          = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	currencyPattern      = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Scores is the per-field and overall confidence of an invoice.
type Scores struct {
	Fields  map[string]float64 `json:"fields"`
	Overall float64            `json:"overall"`
	Status  string             `json:"status"`
}

// Scorer derives Scores with configurable status cut-offs.
type Scorer struct {
	ApproveAt   float64
	RejectBelow float64
}

// NewScorer constructs a Scorer with the default cut-offs.
func NewScorer() *Scorer {
	return &Scorer{ApproveAt: DefaultApproveAt, RejectBelow: DefaultRejectBelow}
}

// Score rates each field as well-formed (1), present but malformed (0.5) or
// missing (0) and combines them with fixed weights. valid is the outcome of
// canonical.Validate for inv; an invalid invoice is never auto-approved.
func (s *Scorer) Score(inv canonical.Invoice, valid bool) Scores {
	fields := map[string]float64{
		"invoice_number": patternScore(inv.InvoiceNumber, invoiceNumberPattern),
		"invoice_date":   patternScore(inv.InvoiceDate, datePattern),
		"due_date":       patternScore(inv.DueDate, datePattern),
		"vendor_name":    nameScore(inv.Vendor.Name),
		"customer_name":  nameScore(inv.Customer.Name),
		"currency":       patternScore(inv.Currency, currencyPattern),
		"subtotal":       amountScore(inv.Subtotal),
		"tax":            amountScore(inv.Tax),
		"total":          amountScore(inv.Total),
		"line_items":     lineItemsScore(inv.LineItems),
		"consistency":    consistencyScore(inv, valid),
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var overall float64
	for _, k := range keys {
		overall += fields[k] * weights[k]
	}
	overall = math.Round(overall*1e4) / 1e4

	return Scores{Fields: fields, Overall: overall, Status: s.status(overall, valid)}
}

func (s *Scorer) status(overall float64, valid bool) string {
	switch {
	case overall >= s.ApproveAt && valid:
		return StatusApproved
	case overall < s.RejectBelow:
		return StatusRejected
	default:
		return StatusNeedsReview
	}
}

func patternScore(v string, re *regexp.Regexp) float64 {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return scoreMissing
	case re.MatchString(v):
		return scoreWellFormed
	default:
		return scoreMalformed
	}
}

func nameScore(v string) float64 {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return scoreMissing
	case len([]rune(v)) >= 2:
		return scoreWellFormed
	default:
		return scoreMalformed
	}
}

func amountScore(v *float64) float64 {
	switch {
	case v == nil:
		return scoreMissing
	case *v < 0:
		return scoreMalformed
	default:
		return scoreWellFormed
	}
}

func lineItemsScore(items []canonical.LineItem) float64 {
	if len(items) == 0 {
		return scoreMissing
	}
	for _, item := range items {
		if strings.TrimSpace(item.Description) == "" || item.Amount == nil {
			return scoreMalformed
		}
	}
	return scoreWellFormed
}

// consistencyScore is 1 when the invoice passes validation, 0.5 when totals
// cannot be cross-checked, and 0 when validation fails on present data.
func consistencyScore(inv canonical.Invoice, valid bool) float64 {
	switch {
	case inv.Total == nil || inv.Subtotal == nil:
		return scoreMalformed
	case !valid:
		return scoreMissing
	default:
		return scoreWellFormed
	}
}

// IsReviewStatus reports whether s is a known review state.
func IsReviewStatus(s string) bool {
	switch s {
	case StatusApproved, StatusRejected, StatusNeedsReview:
		return true
	default:
		return false
	}
}
