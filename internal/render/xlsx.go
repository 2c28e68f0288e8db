package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook produced by XLSX.
const (
	SheetInvoice    = "Invoice"
	SheetTaxSummary = "Tax Summary"
)

var itemHeader = []string{"Sl No", "Description", "HSN", "Qty", "Rate", "Disc %", "GST %", "Amount"}

// XLSX renders doc as a workbook with the invoice on one sheet and the tax
// summary on another.
func XLSX(doc Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetInvoice); err != nil {
		return nil, fmt.Errorf("render: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetTaxSummary); err != nil {
		return nil, fmt.Errorf("render: add sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("render: style: %w", err)
	}

	w := sheetWriter{f: f, sheet: SheetInvoice, next: 1}
	w.row(doc.Title)
	w.row("Invoice No", doc.Number)
	w.row("Date", doc.Date)
	w.row()
	w.row("Seller", doc.Seller.Name)
	w.row("Address", doc.Seller.Address+", "+doc.Seller.City)
	w.row("GSTIN", doc.Seller.GSTNo)
	w.row()
	w.row("Buyer", doc.Buyer.Name)
	w.row("Address", doc.Buyer.Address)
	w.row("State", doc.Buyer.State+" ("+doc.Buyer.StateCode+")")
	w.row("GSTIN", doc.Buyer.GSTNo)
	w.row("Place of Supply", doc.Buyer.PlaceOfSupply)
	w.row()

	header := w.next
	w.row(toAny(itemHeader)...)
	start, _ := excelize.CoordinatesToCellName(1, header)
	end, _ := excelize.CoordinatesToCellName(len(itemHeader), header)
	if err := f.SetCellStyle(SheetInvoice, start, end, headerStyle); err != nil {
		return nil, fmt.Errorf("render: style header: %w", err)
	}
	for _, r := range doc.Rows {
		w.row(r.SlNo, r.Description, r.HSN, r.Quantity, r.Rate, r.Discount, r.GSTRate, r.Amount)
	}
	w.row()
	w.row("Payment Terms", doc.PaymentTerms)
	w.row("Due Date", doc.DueDate)
	w.row("Transport Mode", doc.TransportMode)
	w.row("Vehicle No", doc.VehicleNo)
	if doc.Notes != "" {
		w.row("Notes", doc.Notes)
	}
	w.row()
	w.row("Bank", doc.Bank.BankName)
	w.row("Account Name", doc.Bank.AccountName)
	w.row("Account No", doc.Bank.AccountNumber)
	w.row("IFSC", doc.Bank.IFSC)
	w.row("Branch", doc.Bank.Branch)
	if w.err != nil {
		return nil, w.err
	}
	_ = f.SetColWidth(SheetInvoice, "A", "A", 16)
	_ = f.SetColWidth(SheetInvoice, "B", "B", 32)
	_ = f.SetColWidth(SheetInvoice, "C", "H", 12)

	t := sheetWriter{f: f, sheet: SheetTaxSummary, next: 1}
	t.row("Description", "Amount")
	if err := f.SetCellStyle(SheetTaxSummary, "A1", "B1", headerStyle); err != nil {
		return nil, fmt.Errorf("render: style header: %w", err)
	}
	t.row("Subtotal", doc.Subtotal)
	for _, line := range doc.TaxLines {
		t.row(line.Label, line.Amount)
	}
	t.row("Total GST", doc.TotalGST)
	t.row("Grand Total", doc.GrandTotal)
	t.row("Previous Balance", doc.PreviousBalance)
	t.row("Total Payable", doc.TotalPayable)
	if t.err != nil {
		return nil, t.err
	}
	_ = f.SetColWidth(SheetTaxSummary, "A", "B", 20)

	idx, err := f.GetSheetIndex(SheetInvoice)
	if err == nil {
		f.SetActiveSheet(idx)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render: write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter appends rows to a sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func (w *sheetWriter) row(values ...any) {
	if w.err == nil && len(values) > 0 {
		cell, _ := excelize.CoordinatesToCellName(1, w.next)
		if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
			w.err = fmt.Errorf("render: write %s row %d: %w", w.sheet, w.next, err)
		}
	}
	w.next++
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
