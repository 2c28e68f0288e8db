package gst

import "github.com/shopspring/decimal"

// LineResult carries the derived amounts of one invoice line.
type LineResult struct {
	LineItem
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discountAmount"`
	Taxable  decimal.Decimal `json:"taxable"`
	GST      decimal.Decimal `json:"gst"`
	Total    decimal.Decimal `json:"total"`
}

// Summary is the complete set of figures shown for an invoice. Every
// consumer (API summary, PDF, spreadsheet) renders from this value.
type Summary struct {
	Lines           []LineResult    `json:"lines"`
	Totals          Totals          `json:"totals"`
	Breakdown       []TaxGroup      `json:"breakdown"`
	SameState       bool            `json:"sameState"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	TotalPayable    decimal.Decimal `json:"totalPayable"`
}

// Summarize computes all invoice figures for the given lines and buyer. A nil
// company is treated as an inter-state buyer with no carried-forward balance.
func Summarize(lines []LineItem, company *Company, seller Seller) Summary {
	results := make([]LineResult, 0, len(lines))
	for _, line := range lines {
		taxable := LineTaxableAmount(line.Item, line.Quantity, line.Discount)
		tax := LineGSTAmount(line.Item, taxable)
		results = append(results, LineResult{
			LineItem: line,
			Gross:    line.Item.Rate.Mul(decimal.NewFromInt(int64(line.Quantity))),
			Discount: LineDiscountAmount(line.Item, line.Quantity, line.Discount),
			Taxable:  taxable,
			GST:      tax,
			Total:    LineTotal(taxable, tax),
		})
	}

	sameState := false
	previous := decimal.Zero
	if company != nil {
		sameState = IsSameState(company.StateCode, seller.StateCode)
		previous = company.PendingAmount
	}
	totals := Aggregate(lines)
	return Summary{
		Lines:           results,
		Totals:          totals,
		Breakdown:       GSTBreakdown(lines, sameState),
		SameState:       sameState,
		PreviousBalance: previous,
		TotalPayable:    TotalPayable(totals.GrandTotal, previous),
	}
}
