// Package canonical normalizes extracted invoice fields into a fixed schema
// independent of source layout, and validates the result.
package canonical

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical date format.
const DateLayout = "2006-01-02"

// Party is a vendor or customer.
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
}

// LineItem is one billed line.
type LineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Amount      *float64 `json:"amount"`
}

// Invoice is the canonical invoice. Missing amounts are nil; missing or
// unparseable strings are left as printed (possibly empty).
type Invoice struct {
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   string     `json:"invoice_date"`
	DueDate       string     `json:"due_date"`
	Vendor        Party      `json:"vendor"`
	Customer      Party      `json:"customer"`
	Currency      string     `json:"currency"`
	Subtotal      *float64   `json:"subtotal"`
	Tax           *float64   `json:"tax"`
	Total         *float64   `json:"total"`
	PONumber      string     `json:"po_number"`
	PaymentTerms  string     `json:"payment_terms"`
	LineItems     []LineItem `json:"line_items"`
}

var aliases = map[string][]string{
	"invoice_number": {"invoice_number", "invoiceNumber", "invoice_no", "invoice_id", "number"},
	"invoice_date":   {"invoice_date", "invoiceDate", "issue_date", "date"},
	"due_date":       {"due_date", "dueDate", "payment_due_date"},
	"vendor":         {"vendor", "seller", "supplier", "from"},
	"vendor_name":    {"vendor_name", "vendorName", "seller_name", "supplier_name"},
	"customer":       {"customer", "buyer", "bill_to", "client"},
	"customer_name":  {"customer_name", "customerName", "buyer_name"},
	"currency":       {"currency", "currency_code"},
	"subtotal":       {"subtotal", "sub_total", "net_amount"},
	"tax":            {"tax", "tax_amount", "vat", "gst"},
	"total":          {"total", "total_amount", "grand_total", "amount_due"},
	"po_number":      {"po_number", "purchase_order", "poNumber"},
	"payment_terms":  {"payment_terms", "terms"},
	"line_items":     {"line_items", "lineItems", "items"},
}

var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02.01.2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
	"2 Jan 2006",
	time.RFC3339,
}

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"₹": "INR",
	"¥": "JPY",
}

var amountCleaner = regexp.MustCompile(`[^0-9.\-]`)

// Canonicalize maps raw extracted fields onto Invoice. It is pure and
// deterministic.
func Canonicalize(fields map[string]any) Invoice {
	inv := Invoice{
		InvoiceNumber: str(lookup(fields, "invoice_number")),
		InvoiceDate:   NormalizeDate(str(lookup(fields, "invoice_date"))),
		DueDate:       NormalizeDate(str(lookup(fields, "due_date"))),
		Vendor:        party(lookup(fields, "vendor")),
		Customer:      party(lookup(fields, "customer")),
		PONumber:      str(lookup(fields, "po_number")),
		PaymentTerms:  str(lookup(fields, "payment_terms")),
		LineItems:     lineItems(lookup(fields, "line_items")),
	}
	if inv.Vendor.Name == "" {
		inv.Vendor.Name = str(lookup(fields, "vendor_name"))
	}
	if inv.Customer.Name == "" {
		inv.Customer.Name = str(lookup(fields, "customer_name"))
	}

	rawSubtotal := lookup(fields, "subtotal")
	rawTax := lookup(fields, "tax")
	rawTotal := lookup(fields, "total")
	inv.Subtotal = ParseAmount(rawSubtotal)
	inv.Tax = ParseAmount(rawTax)
	inv.Total = ParseAmount(rawTotal)

	inv.Currency = NormalizeCurrency(str(lookup(fields, "currency")))
	if inv.Currency == "" {
		inv.Currency = currencyFromAmount(rawTotal, rawSubtotal)
	}
	return inv
}

// NormalizeDate returns YYYY-MM-DD when raw matches a known layout, and the
// trimmed input otherwise.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout)
		}
	}
	return s
}

// NormalizeCurrency maps symbols to ISO codes and upper-cases codes.
func NormalizeCurrency(raw string) string {
	s := strings.TrimSpace(raw)
	if code, ok := currencySymbols[s]; ok {
		return code
	}
	return strings.ToUpper(s)
}

// ParseAmount accepts numbers and strings like "$1,234.56" or "(12.00)".
func ParseAmount(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return round2(n)
	case int:
		return round2(float64(n))
	case string:
		s := strings.TrimSpace(n)
		negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
		s = amountCleaner.ReplaceAllString(s, "")
		if s == "" || s == "-" || s == "." {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		if negative && f > 0 {
			f = -f
		}
		return round2(f)
	default:
		return nil
	}
}

func round2(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	r := math.Round(f*100) / 100
	return &r
}

// currencyFromAmount returns the code of the leftmost currency symbol in the
// first string amount carrying one.
func currencyFromAmount(values ...any) string {
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		best, code := -1, ""
		for symbol, c := range currencySymbols {
			i := strings.Index(s, symbol)
			if i >= 0 && (best < 0 || i < best) {
				best, code = i, c
			}
		}
		if code != "" {
			return code
		}
	}
	return ""
}

func lookup(fields map[string]any, key string) any {
	for _, alias := range aliases[key] {
		if v, ok := fields[alias]; ok && v != nil {
			return v
		}
	}
	return nil
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func party(v any) Party {
	switch p := v.(type) {
	case string:
		return Party{Name: strings.TrimSpace(p)}
	case map[string]any:
		return Party{
			Name:    str(firstOf(p, "name", "company", "company_name")),
			Address: str(firstOf(p, "address", "addr")),
			TaxID:   str(firstOf(p, "tax_id", "taxId", "vat_number", "gstin")),
		}
	default:
		return Party{}
	}
}

func lineItems(v any) []LineItem {
	items := []LineItem{}
	raw, ok := v.([]any)
	if !ok {
		return items
	}
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, LineItem{
			Description: str(firstOf(m, "description", "item", "name")),
			Quantity:    ParseAmount(firstOf(m, "quantity", "qty")),
			UnitPrice:   ParseAmount(firstOf(m, "unit_price", "unitPrice", "rate", "price")),
			Amount:      ParseAmount(firstOf(m, "amount", "total", "line_total")),
		})
	}
	return items
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
