package render_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/gst-invoice/internal/gst"
	"github.com/noah-isme/gst-invoice/internal/render"
	"github.com/noah-isme/gst-invoice/internal/seed"
)

func steelLine() gst.LineItem {
	return gst.LineItem{
		ID: "l1",
		Item: gst.InventoryItem{
			ID: "1", Name: "Steel Bars (10mm)", HSN: "7214", Rate: decimal.NewFromInt(5500),
			Stock: 150, Unit: "MT", GSTRate: decimal.NewFromInt(18),
		},
		Quantity: 2,
		Discount: decimal.NewFromInt(10),
	}
}

func input(buyer gst.Company) render.Input {
	return render.Input{
		Number:        "INV/2501/0042",
		Date:          time.Date(2025, time.January, 20, 10, 0, 0, 0, time.UTC),
		Seller:        seed.DefaultSeller(),
		Bank:          seed.DefaultBank(),
		Company:       buyer,
		Lines:         []gst.LineItem{steelLine()},
		PaymentTerms:  "Net 30 Days",
		DueDate:       "2025-02-19",
		Notes:         "Deliver to site office",
		TransportMode: "By Road",
		VehicleNo:     "MH12AB1234",
	}
}

var (
	mumbaiBuyer = gst.Company{ID: "1", Name: "Sharma Constructions Pvt Ltd", GSTNo: "27AABCU9603R1ZM", State: "Maharashtra", StateCode: "27", PendingAmount: decimal.NewFromInt(125000)}
	delhiBuyer  = gst.Company{ID: "3", Name: "Raj Builders & Developers", GSTNo: "07AAACR5055K1Z6", State: "Delhi", StateCode: "07"}
)

func TestBuildSameStateSplitsTax(t *testing.T) {
	doc := render.Build(input(mumbaiBuyer))

	require.Equal(t, "TAX INVOICE", doc.Title)
	require.Equal(t, "20/01/2025", doc.Date)
	require.True(t, doc.SameState)
	require.Equal(t, "Maharashtra (27)", doc.Buyer.PlaceOfSupply)
	require.Len(t, doc.Rows, 1)
	require.Equal(t, render.Row{
		SlNo: 1, Description: "Steel Bars (10mm)", HSN: "7214", Quantity: "2 MT",
		Rate: "5,500.00", Discount: "10%", GSTRate: "18%", Amount: "9,900.00",
	}, doc.Rows[0])
	require.Equal(t, []render.TaxLine{
		{Label: "CGST @ 9%", Amount: "891.00"},
		{Label: "SGST @ 9%", Amount: "891.00"},
	}, doc.TaxLines)
	require.Equal(t, "9,900.00", doc.Subtotal)
	require.Equal(t, "1,782.00", doc.TotalGST)
	require.Equal(t, "11,682.00", doc.GrandTotal)
	require.Equal(t, "1,25,000.00", doc.PreviousBalance)
	require.Equal(t, "1,36,682.00", doc.TotalPayable)
}

func TestBuildCrossStateUsesIGST(t *testing.T) {
	doc := render.Build(input(delhiBuyer))

	require.False(t, doc.SameState)
	require.Equal(t, []render.TaxLine{{Label: "IGST @ 18%", Amount: "1,782.00"}}, doc.TaxLines)
	require.Equal(t, "0.00", doc.PreviousBalance)
	require.Equal(t, "11,682.00", doc.TotalPayable)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "Invoice_INV_2501_0042.pdf", render.FileName("INV/2501/0042", "pdf"))
	require.Equal(t, "Invoice_INV_2501_0042.xlsx", render.FileName("INV/2501/0042", ".xlsx"))
}

func TestPDFProducesDocument(t *testing.T) {
	data, err := render.PDF(render.Build(input(mumbaiBuyer)))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestXLSXSheets(t *testing.T) {
	data, err := render.XLSX(render.Build(input(mumbaiBuyer)))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{render.SheetInvoice, render.SheetTaxSummary}, f.GetSheetList())

	cell := func(sheet, ref string) string {
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return v
	}
	require.Equal(t, "INV/2501/0042", cell(render.SheetInvoice, "B2"))
	require.Equal(t, "Sl No", cell(render.SheetInvoice, "A15"))
	require.Equal(t, "Steel Bars (10mm)", cell(render.SheetInvoice, "B16"))
	require.Equal(t, "9,900.00", cell(render.SheetInvoice, "H16"))

	require.Equal(t, "CGST @ 9%", cell(render.SheetTaxSummary, "A3"))
	require.Equal(t, "891.00", cell(render.SheetTaxSummary, "B3"))
	require.Equal(t, "11,682.00", cell(render.SheetTaxSummary, "B6"))
	require.Equal(t, "1,36,682.00", cell(render.SheetTaxSummary, "B8"))
}
