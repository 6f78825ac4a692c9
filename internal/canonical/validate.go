package canonical

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	totalsTolerance    = 0.02
	lineItemsTolerance = 0.05
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["invoice_number", "invoice_date", "currency", "total", "line_items"],
  "properties": {
    "invoice_number": {"type": "string", "minLength": 1},
    "invoice_date": {"type": "string", "pattern": "^(\\d{4}-\\d{2}-\\d{2})?$"},
    "due_date": {"type": "string", "pattern": "^(\\d{4}-\\d{2}-\\d{2})?$"},
    "currency": {"type": "string", "pattern": "^([A-Z]{3})?$"},
    "subtotal": {"type": ["number", "null"]},
    "tax": {"type": ["number", "null"], "minimum": 0},
    "total": {"type": "number"},
    "line_items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["description"],
        "properties": {
          "description": {"type": "string"},
          "quantity": {"type": ["number", "null"]},
          "unit_price": {"type": ["number", "null"]},
          "amount": {"type": ["number", "null"]}
        }
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("invoice.schema.json", schemaJSON)

// ValidationError describes why a canonical invoice failed validation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks inv against the invoice schema and business rules. It
// returns nil or a *ValidationError.
func Validate(inv Invoice) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("encode invoice: %v", err)}
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return &ValidationError{Message: fmt.Sprintf("decode invoice: %v", err)}
	}
	if err := schema.Validate(doc); err != nil {
		return &ValidationError{Message: schemaMessage(err)}
	}
	return checkBusinessRules(inv)
}

func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := leaf.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("schema: %s: %s", loc, leaf.Message)
}

func checkBusinessRules(inv Invoice) error {
	if inv.Subtotal != nil && inv.Total != nil {
		tax := 0.0
		if inv.Tax != nil {
			tax = *inv.Tax
		}
		if math.Abs(*inv.Subtotal+tax-*inv.Total) > totalsTolerance {
			return &ValidationError{Message: fmt.Sprintf("subtotal (%.2f) + tax (%.2f) does not equal total (%.2f)", *inv.Subtotal, tax, *inv.Total)}
		}
	}

	if sum, ok := lineItemsSum(inv.LineItems); ok {
		target, label := inv.Subtotal, "subtotal"
		if target == nil {
			target, label = inv.Total, "total"
		}
		if target != nil && math.Abs(sum-*target) > lineItemsTolerance {
			return &ValidationError{Message: fmt.Sprintf("line items sum (%.2f) does not match %s (%.2f)", sum, label, *target)}
		}
	}

	if inv.InvoiceDate != "" && inv.DueDate != "" {
		issued, err1 := time.Parse(DateLayout, inv.InvoiceDate)
		due, err2 := time.Parse(DateLayout, inv.DueDate)
		if err1 == nil && err2 == nil && due.Before(issued) {
			return &ValidationError{Message: "due_date is before invoice_date"}
		}
	}
	return nil
}

// lineItemsSum reports the sum of line amounts when every line has one.
func lineItemsSum(items []LineItem) (float64, bool) {
	if len(items) == 0 {
		return 0, false
	}
	var sum float64
	for _, item := range items {
		if item.Amount == nil {
			return 0, false
		}
		sum += *item.Amount
	}
	return sum, true
}
