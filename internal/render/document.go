// Package render turns a finalized invoice into printable documents. Every
// figure on a document comes from gst.Summarize.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

// Input is everything needed to lay out an invoice.
type Input struct {
	Number        string
	Date          time.Time
	Seller        gst.Seller
	Bank          gst.BankDetails
	Company       gst.Company
	Lines         []gst.LineItem
	PaymentTerms  string
	DueDate       string
	Notes         string
	TransportMode string
	VehicleNo     string
}

// Party is a printable seller or buyer block.
type Party struct {
	Name          string
	Address       string
	City          string
	State         string
	StateCode     string
	GSTNo         string
	PAN           string
	Phone         string
	Email         string
	PlaceOfSupply string
}

// Row is one line of the item table.
type Row struct {
	SlNo        int
	Description string
	HSN         string
	Quantity    string
	Rate        string
	Discount    string
	GSTRate     string
	Amount      string
}

// TaxLine is a labelled amount in the tax summary, e.g. "CGST @ 9%".
type TaxLine struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// Document is the rendered content of an invoice, independent of format.
type Document struct {
	Title           string
	Number          string
	Date            string
	Seller          Party
	Buyer           Party
	Rows            []Row
	Subtotal        string
	TaxLines        []TaxLine
	TotalGST        string
	GrandTotal      string
	PreviousBalance string
	TotalPayable    string
	SameState       bool
	PaymentTerms    string
	DueDate         string
	Notes           string
	TransportMode   string
	VehicleNo       string
	Bank            gst.BankDetails
	Summary         gst.Summary
}

// Build lays out the invoice.
func Build(in Input) Document {
	company := in.Company
	summary := gst.Summarize(in.Lines, &company, in.Seller)

	doc := Document{
		Title:  "TAX INVOICE",
		Number: in.Number,
		Date:   in.Date.Format("02/01/2006"),
		Seller: Party{
			Name:      in.Seller.Name,
			Address:   in.Seller.Address,
			City:      strings.TrimSpace(in.Seller.City + " " + in.Seller.Pincode),
			State:     in.Seller.State,
			StateCode: in.Seller.StateCode,
			GSTNo:     in.Seller.GSTNo,
			PAN:       in.Seller.PAN,
			Phone:     in.Seller.Phone,
			Email:     in.Seller.Email,
		},
		Buyer: Party{
			Name:          company.Name,
			Address:       company.Address,
			State:         company.State,
			StateCode:     company.StateCode,
			GSTNo:         company.GSTNo,
			Phone:         company.Phone,
			PlaceOfSupply: placeOfSupply(company),
		},
		Subtotal:        gst.FormatAmount(summary.Totals.Subtotal),
		TotalGST:        gst.FormatAmount(summary.Totals.TotalGST),
		GrandTotal:      gst.FormatAmount(summary.Totals.GrandTotal),
		PreviousBalance: gst.FormatAmount(summary.PreviousBalance),
		TotalPayable:    gst.FormatAmount(summary.TotalPayable),
		SameState:       summary.SameState,
		PaymentTerms:    in.PaymentTerms,
		DueDate:         in.DueDate,
		Notes:           in.Notes,
		TransportMode:   in.TransportMode,
		VehicleNo:       in.VehicleNo,
		Bank:            in.Bank,
		Summary:         summary,
	}

	for i, line := range summary.Lines {
		doc.Rows = append(doc.Rows, Row{
			SlNo:        i + 1,
			Description: line.Item.Name,
			HSN:         line.Item.HSN,
			Quantity:    strings.TrimSpace(fmt.Sprintf("%d %s", line.Quantity, line.Item.Unit)),
			Rate:        gst.FormatAmount(line.Item.Rate),
			Discount:    gst.FormatRate(line.Discount) + "%",
			GSTRate:     gst.FormatRate(line.Item.GSTRate) + "%",
			Amount:      gst.FormatAmount(line.Taxable),
		})
	}

	doc.TaxLines = TaxLines(summary)
	return doc
}

// TaxLines labels the GST breakdown of summary: CGST and SGST at half the
// rate for intra-state supplies, IGST at the full rate otherwise.
func TaxLines(summary gst.Summary) []TaxLine {
	out := make([]TaxLine, 0, 2*len(summary.Breakdown))
	for _, group := range summary.Breakdown {
		if summary.SameState {
			half := gst.FormatRate(group.HalfRate)
			out = append(out,
				TaxLine{Label: "CGST @ " + half + "%", Amount: gst.FormatAmount(group.CGST)},
				TaxLine{Label: "SGST @ " + half + "%", Amount: gst.FormatAmount(group.SGST)},
			)
			continue
		}
		out = append(out, TaxLine{
			Label:  "IGST @ " + gst.FormatRate(group.Rate) + "%",
			Amount: gst.FormatAmount(group.IGST),
		})
	}
	return out
}

// FileName returns the download name for an invoice number, e.g.
// "Invoice_INV_2501_0042.pdf".
func FileName(number, ext string) string {
	return "Invoice_" + strings.ReplaceAll(number, "/", "_") + "." + strings.TrimPrefix(ext, ".")
}

func placeOfSupply(c gst.Company) string {
	switch {
	case c.State != "" && c.StateCode != "":
		return fmt.Sprintf("%s (%s)", c.State, c.StateCode)
	case c.State != "":
		return c.State
	default:
		return c.StateCode
	}
}
