package openai

import (
	"fmt"

	"invoice-backend/internal/llm"
)

// maxPromptText bounds the PDF text layer sent inline.
const maxPromptText = 24000

const systemPrompt = `You are an invoice data extraction engine. Respond with a single JSON object only. No markdown.
Use these keys and omit nothing; use null when a value is not present on the document:
{
  "invoice_number": "string",
  "invoice_date": "string (as printed)",
  "due_date": "string (as printed)",
  "vendor": {"name": "string", "address": "string", "tax_id": "string"},
  "customer": {"name": "string", "address": "string"},
  "currency": "ISO 4217 code or symbol",
  "subtotal": "number or string",
  "tax": "number or string",
  "total": "number or string",
  "po_number": "string",
  "payment_terms": "string",
  "line_items": [{"description": "string", "quantity": "number", "unit_price": "number", "amount": "number"}]
}
If the document is not an invoice, return {"error": "Document is not an invoice"}.`

// BuildMessages creates the chat messages for an extraction request.
func BuildMessages(doc llm.Document) []chatMessage {
	system := chatMessage{Role: "system", Content: systemPrompt}
	if doc.Text != "" {
		text := doc.Text
		if len(text) > maxPromptText {
			text = text[:maxPromptText]
		}
		return []chatMessage{
			system,
			{Role: "user", Content: fmt.Sprintf("Extract the invoice fields from this %d-page PDF text:\n\n%s", doc.Pages, text)},
		}
	}
	return []chatMessage{
		system,
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: "Extract the invoice fields from this document."},
			{Type: "image_url", ImageURL: &imageURL{URL: doc.DataURL}},
		}},
	}
}
