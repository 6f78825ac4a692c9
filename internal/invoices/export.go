package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Invoices"

var exportHeaders = []string{
	"Invoice ID",
	"Invoice Number",
	"Invoice Date",
	"Due Date",
	"Vendor",
	"Customer",
	"Currency",
	"Subtotal",
	"Tax",
	"Total",
	"Status",
	"Confidence",
	"Approved By",
	"Original File",
	"Created At",
}

// ExportXLSX renders up to MaxListLimit of the user's invoices, newest first,
// as an XLSX workbook.
func (s *Service) ExportXLSX(ctx context.Context, userID string) ([]byte, error) {
	invoices, err := s.List(ctx, userID, MaxListLimit)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for i, inv := range invoices {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
		c := inv.CanonicalData
		write(1, inv.ID)
		write(2, c.InvoiceNumber)
		write(3, c.InvoiceDate)
		write(4, c.DueDate)
		write(5, c.Vendor.Name)
		write(6, c.Customer.Name)
		write(7, c.Currency)
		write(8, amountCell(c.Subtotal))
		write(9, amountCell(c.Tax))
		write(10, amountCell(c.Total))
		write(11, inv.Status)
		write(12, inv.ConfidenceScores.Overall)
		if inv.ApprovedBy != nil {
			write(13, *inv.ApprovedBy)
		}
		write(14, inv.OriginalFilename)
		write(15, inv.CreatedAt.UTC().Format(time.RFC3339))
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 38)
	_ = f.SetColWidth(exportSheet, "B", "D", 16)
	_ = f.SetColWidth(exportSheet, "E", "F", 28)
	_ = f.SetColWidth(exportSheet, "H", "J", 14)
	_ = f.SetColWidth(exportSheet, "N", "O", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func amountCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
