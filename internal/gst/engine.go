package gst

import (
	"sort"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Totals aggregates the monetary figures of an invoice.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	TotalGST      decimal.Decimal `json:"totalGst"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

// TaxGroup holds the GST collected at one nominal rate. Either CGST/SGST or
// IGST is populated, never both.
type TaxGroup struct {
	Rate     decimal.Decimal `json:"rate"`
	HalfRate decimal.Decimal `json:"halfRate"`
	Taxable  decimal.Decimal `json:"taxable"`
	CGST     decimal.Decimal `json:"cgst"`
	SGST     decimal.Decimal `json:"sgst"`
	IGST     decimal.Decimal `json:"igst"`
}

// Total returns the full GST of the group.
func (g TaxGroup) Total() decimal.Decimal {
	return g.CGST.Add(g.SGST).Add(g.IGST)
}

// LineTaxableAmount returns rate × quantity × (1 − discountPct/100). The
// discount is not clamped here.
func LineTaxableAmount(item InventoryItem, quantity int, discountPct decimal.Decimal) decimal.Decimal {
	gross := item.Rate.Mul(decimal.NewFromInt(int64(quantity)))
	return gross.Mul(decimal.NewFromInt(1).Sub(discountPct.Div(hundred)))
}

// LineGSTAmount returns the unrounded GST due on a taxable amount.
func LineGSTAmount(item InventoryItem, taxable decimal.Decimal) decimal.Decimal {
	return taxable.Mul(item.GSTRate).Div(hundred)
}

// LineTotal sums a line's taxable amount and its GST.
func LineTotal(taxable, gstAmount decimal.Decimal) decimal.Decimal {
	return taxable.Add(gstAmount)
}

// LineDiscountAmount returns rate × quantity × discountPct/100.
func LineDiscountAmount(item InventoryItem, quantity int, discountPct decimal.Decimal) decimal.Decimal {
	return item.Rate.Mul(decimal.NewFromInt(int64(quantity))).Mul(discountPct).Div(hundred)
}

// Aggregate sums all lines in insertion order. An empty slice yields zero totals.
func Aggregate(lines []LineItem) Totals {
	totals := Totals{
		Subtotal:      decimal.Zero,
		TotalDiscount: decimal.Zero,
		TotalGST:      decimal.Zero,
		GrandTotal:    decimal.Zero,
	}
	for _, line := range lines {
		taxable := LineTaxableAmount(line.Item, line.Quantity, line.Discount)
		totals.Subtotal = totals.Subtotal.Add(taxable)
		totals.TotalDiscount = totals.TotalDiscount.Add(LineDiscountAmount(line.Item, line.Quantity, line.Discount))
		totals.TotalGST = totals.TotalGST.Add(LineGSTAmount(line.Item, taxable))
	}
	totals.GrandTotal = totals.Subtotal.Add(totals.TotalGST)
	return totals
}

// GSTBreakdown groups line GST by the item's nominal rate. Intra-state supply
// splits each group evenly into CGST and SGST; inter-state supply reports the
// whole group as IGST. Groups are ordered by ascending rate.
func GSTBreakdown(lines []LineItem, sameState bool) []TaxGroup {
	groups := make(map[string]*TaxGroup)
	keys := make([]decimal.Decimal, 0)
	for _, line := range lines {
		rate := line.Item.GSTRate
		key := rate.String()
		group, ok := groups[key]
		if !ok {
			group = &TaxGroup{
				Rate:     rate,
				HalfRate: rate.Div(two),
				Taxable:  decimal.Zero,
				CGST:     decimal.Zero,
				SGST:     decimal.Zero,
				IGST:     decimal.Zero,
			}
			groups[key] = group
			keys = append(keys, rate)
		}
		taxable := LineTaxableAmount(line.Item, line.Quantity, line.Discount)
		group.Taxable = group.Taxable.Add(taxable)
		amount := LineGSTAmount(line.Item, taxable)
		if sameState {
			half := amount.Div(two)
			group.CGST = group.CGST.Add(half)
			group.SGST = group.SGST.Add(half)
		} else {
			group.IGST = group.IGST.Add(amount)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].LessThan(keys[j]) })
	out := make([]TaxGroup, 0, len(keys))
	for _, rate := range keys {
		out = append(out, *groups[rate.String()])
	}
	return out
}

// IsSameState reports whether buyer and seller share a GST jurisdiction.
func IsSameState(buyerStateCode, sellerStateCode string) bool {
	return buyerStateCode == sellerStateCode
}

// TotalPayable adds the carried-forward balance to the grand total. The
// balance is not floored.
func TotalPayable(grandTotal, pendingBalance decimal.Decimal) decimal.Decimal {
	return grandTotal.Add(pendingBalance)
}
