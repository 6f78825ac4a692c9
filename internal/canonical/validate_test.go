package canonical

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInvoice() Invoice {
	return Invoice{
		InvoiceNumber: "INV-1",
		InvoiceDate:   "2025-01-01",
		DueDate:       "2025-01-31",
		Vendor:        Party{Name: "Acme"},
		Currency:      "USD",
		Subtotal:      ptr(100),
		Tax:           ptr(10),
		Total:         ptr(110),
		LineItems: []LineItem{
			{Description: "a", Amount: ptr(60)},
			{Description: "b", Amount: ptr(40)},
		},
	}
}

func TestValidateAcceptsConsistentInvoice(t *testing.T) {
	assert.NoError(t, Validate(validInvoice()))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Invoice)
		want   string
	}{
		{name: "missing number", mutate: func(i *Invoice) { i.InvoiceNumber = "" }, want: "/invoice_number"},
		{name: "missing total", mutate: func(i *Invoice) { i.Total = nil; i.Subtotal = nil }, want: "/total"},
		{name: "bad currency", mutate: func(i *Invoice) { i.Currency = "usd$" }, want: "/currency"},
		{name: "unnormalized date", mutate: func(i *Invoice) { i.InvoiceDate = "sometime" }, want: "/invoice_date"},
		{name: "negative tax", mutate: func(i *Invoice) { i.Tax = ptr(-1); i.Total = ptr(99) }, want: "/tax"},
		{name: "totals mismatch", mutate: func(i *Invoice) { i.Total = ptr(200) }, want: "does not equal total"},
		{name: "line items mismatch", mutate: func(i *Invoice) { i.LineItems[0].Amount = ptr(10) }, want: "line items sum"},
		{name: "due before issue", mutate: func(i *Invoice) { i.DueDate = "2024-12-01" }, want: "due_date is before invoice_date"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			inv.LineItems = append([]LineItem(nil), inv.LineItems...)
			tt.mutate(&inv)

			err := Validate(inv)
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.True(t, strings.Contains(ve.Message, tt.want), "message %q should contain %q", ve.Message, tt.want)
		})
	}
}

func TestValidateLineItemsAgainstTotalWithoutSubtotal(t *testing.T) {
	inv := validInvoice()
	inv.Subtotal = nil
	inv.Tax = nil
	inv.Total = ptr(100)
	assert.NoError(t, Validate(inv))
}

func TestValidateToleratesRounding(t *testing.T) {
	inv := validInvoice()
	inv.Total = ptr(110.01)
	assert.NoError(t, Validate(inv))
}
