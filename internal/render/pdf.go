package render

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// PDF renders doc as an A4 PDF.
func PDF(doc Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(10).
		WithTopMargin(12).
		WithRightMargin(10).
		Build()

	m := maroto.New(cfg)
	addHeader(m, doc)
	addParties(m, doc)
	addItems(m, doc)
	addTotals(m, doc)
	addFooter(m, doc)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render: generate pdf: %w", err)
	}
	return out.GetBytes(), nil
}

var (
	small  = props.Text{Size: 8, Align: align.Left}
	normal = props.Text{Size: 9, Align: align.Left}
	bold   = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Left}
	right  = props.Text{Size: 9, Align: align.Right}
	rightB = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
)

func at(p props.Text, top float64) props.Text {
	p.Top = top
	return p
}

func addHeader(m core.Maroto, doc Document) {
	s := doc.Seller
	m.AddRow(28,
		col.New(7).Add(
			text.New(s.Name, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Left}),
			text.New(s.Address, at(small, 7)),
			text.New(s.City+", "+s.State, at(small, 11)),
			text.New("GSTIN: "+s.GSTNo+"   PAN: "+s.PAN, at(small, 15)),
			text.New("Phone: "+s.Phone+"   Email: "+s.Email, at(small, 19)),
		),
		col.New(5).Add(
			text.New(doc.Title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
			text.New("Invoice No: "+doc.Number, at(right, 9)),
			text.New("Date: "+doc.Date, at(right, 14)),
		),
	)
	m.AddRow(4, line.NewCol(12))
}

func addParties(m core.Maroto, doc Document) {
	b := doc.Buyer
	m.AddRow(26,
		col.New(7).Add(
			text.New("Bill To:", bold),
			text.New(b.Name, at(bold, 5)),
			text.New(b.Address, at(small, 10)),
			text.New("State: "+b.State+" ("+b.StateCode+")", at(small, 14)),
			text.New("GSTIN: "+b.GSTNo, at(small, 18)),
		),
		col.New(5).Add(
			text.New("Place of Supply: "+b.PlaceOfSupply, right),
			text.New("Payment Terms: "+doc.PaymentTerms, at(right, 5)),
			text.New("Due Date: "+doc.DueDate, at(right, 10)),
			text.New("Transport: "+doc.TransportMode, at(right, 15)),
			text.New("Vehicle No: "+doc.VehicleNo, at(right, 20)),
		),
	)
	m.AddRow(4, line.NewCol(12))
}

func addItems(m core.Maroto, doc Document) {
	m.AddRow(7,
		col.New(1).Add(text.New("Sl", bold)),
		col.New(3).Add(text.New("Description", bold)),
		col.New(1).Add(text.New("HSN", bold)),
		col.New(2).Add(text.New("Qty", bold)),
		col.New(1).Add(text.New("Rate", rightB)),
		col.New(1).Add(text.New("Disc", rightB)),
		col.New(1).Add(text.New("GST", rightB)),
		col.New(2).Add(text.New("Amount", rightB)),
	)
	m.AddRow(2, line.NewCol(12))
	for _, r := range doc.Rows {
		m.AddRow(7,
			col.New(1).Add(text.New(fmt.Sprintf("%d", r.SlNo), normal)),
			col.New(3).Add(text.New(r.Description, normal)),
			col.New(1).Add(text.New(r.HSN, normal)),
			col.New(2).Add(text.New(r.Quantity, normal)),
			col.New(1).Add(text.New(r.Rate, right)),
			col.New(1).Add(text.New(r.Discount, right)),
			col.New(1).Add(text.New(r.GSTRate, right)),
			col.New(2).Add(text.New(r.Amount, right)),
		)
	}
	m.AddRow(3, line.NewCol(12))
}

func addTotals(m core.Maroto, doc Document) {
	total := func(label, amount string, strong bool) {
		l, a := right, right
		if strong {
			l, a = rightB, rightB
		}
		m.AddRow(6,
			col.New(7),
			col.New(3).Add(text.New(label, l)),
			col.New(2).Add(text.New(amount, a)),
		)
	}
	total("Subtotal", doc.Subtotal, false)
	for _, t := range doc.TaxLines {
		total(t.Label, t.Amount, false)
	}
	total("Total GST", doc.TotalGST, false)
	total("Grand Total", doc.GrandTotal, true)
	total("Previous Balance", doc.PreviousBalance, false)
	total("Total Payable", doc.TotalPayable, true)
	m.AddRow(4, line.NewCol(12))
}

func addFooter(m core.Maroto, doc Document) {
	if doc.Notes != "" {
		m.AddRow(10, col.New(12).Add(
			text.New("Notes:", bold),
			text.New(doc.Notes, at(small, 5)),
		))
	}
	bank := doc.Bank
	m.AddRow(24,
		col.New(7).Add(
			text.New("Bank Details", bold),
			text.New("Bank: "+bank.BankName, at(small, 5)),
			text.New("A/c Name: "+bank.AccountName, at(small, 9)),
			text.New("A/c No: "+bank.AccountNumber, at(small, 13)),
			text.New("IFSC: "+bank.IFSC+"   Branch: "+bank.Branch, at(small, 17)),
		),
		col.New(5).Add(
			text.New("For "+doc.Seller.Name, rightB),
			text.New("Authorised Signatory", at(right, 16)),
		),
	)
}
