package gst_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecEqual(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.True(t, dec(want).Equal(got), append([]any{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func item(rate, gstRate string, stock int) gst.InventoryItem {
	return gst.InventoryItem{
		ID:      "item-" + rate + "-" + gstRate,
		Name:    "Item",
		HSN:     "7214",
		Rate:    dec(rate),
		Stock:   stock,
		Unit:    "MT",
		GSTRate: dec(gstRate),
	}
}

func line(id string, it gst.InventoryItem, qty int, discount string) gst.LineItem {
	return gst.LineItem{ID: id, Item: it, Quantity: qty, Discount: dec(discount)}
}

func TestLineAmountsSteelBarScenario(t *testing.T) {
	steel := item("5500", "18", 150)

	taxable := gst.LineTaxableAmount(steel, 2, dec("10"))
	requireDecEqual(t, "9900", taxable)

	tax := gst.LineGSTAmount(steel, taxable)
	requireDecEqual(t, "1782", tax)

	requireDecEqual(t, "11682", gst.LineTotal(taxable, tax))
}

func TestLineTaxableAmountDoesNotClamp(t *testing.T) {
	it := item("100", "18", 10)

	requireDecEqual(t, "-50", gst.LineTaxableAmount(it, 1, dec("150")))
	requireDecEqual(t, "110", gst.LineTaxableAmount(it, 1, dec("-10")))
}

func TestLineTotalsProperty(t *testing.T) {
	cases := []struct {
		rate     string
		gstRate  string
		qty      int
		discount string
	}{
		{"5500", "18", 2, "10"},
		{"380", "28", 7, "0"},
		{"8", "5", 10000, "2.5"},
		{"55", "18", 3, "100"},
		{"2400", "0", 1, "33.33"},
		{"0", "12", 5, "0"},
	}
	for _, tc := range cases {
		it := item(tc.rate, tc.gstRate, 100)
		taxable := gst.LineTaxableAmount(it, tc.qty, dec(tc.discount))
		tax := gst.LineGSTAmount(it, taxable)
		total := gst.LineTotal(taxable, tax)

		require.True(t, total.Equal(taxable.Add(tax)))
		gross := it.Rate.Mul(decimal.NewFromInt(int64(tc.qty)))
		require.True(t, taxable.LessThanOrEqual(gross), "taxable %s exceeds gross %s", taxable, gross)
	}
}

func TestAggregateEmpty(t *testing.T) {
	totals := gst.Aggregate(nil)
	requireDecEqual(t, "0", totals.Subtotal)
	requireDecEqual(t, "0", totals.TotalDiscount)
	requireDecEqual(t, "0", totals.TotalGST)
	requireDecEqual(t, "0", totals.GrandTotal)

	totals = gst.Aggregate([]gst.LineItem{})
	requireDecEqual(t, "0", totals.GrandTotal)
}

func TestAggregateSums(t *testing.T) {
	lines := []gst.LineItem{
		line("1", item("5500", "18", 150), 2, "10"),
		line("2", item("8", "5", 10000), 1000, "0"),
	}

	totals := gst.Aggregate(lines)
	requireDecEqual(t, "17900", totals.Subtotal)
	requireDecEqual(t, "1100", totals.TotalDiscount)
	requireDecEqual(t, "2182", totals.TotalGST)
	requireDecEqual(t, "20082", totals.GrandTotal)
}

func TestAggregateGrandTotalIdentity(t *testing.T) {
	lines := []gst.LineItem{
		line("1", item("5800", "18", 80), 3, "7.5"),
		line("2", item("380", "28", 500), 41, "12.25"),
		line("3", item("55", "18", 2000), 999, "0"),
		line("4", item("2500", "5", 200), 13, "3.333"),
	}
	totals := gst.Aggregate(lines)
	diff := totals.GrandTotal.Sub(totals.Subtotal.Add(totals.TotalGST)).Abs()
	require.True(t, diff.LessThan(dec("0.000001")))
}

func TestAggregateIsIdempotent(t *testing.T) {
	lines := []gst.LineItem{
		line("1", item("5500", "18", 150), 2, "10"),
		line("2", item("380", "28", 500), 5, "5"),
	}
	first := gst.Aggregate(lines)
	second := gst.Aggregate(lines)
	require.True(t, first.Subtotal.Equal(second.Subtotal))
	require.True(t, first.TotalDiscount.Equal(second.TotalDiscount))
	require.True(t, first.TotalGST.Equal(second.TotalGST))
	require.True(t, first.GrandTotal.Equal(second.GrandTotal))
}

func TestBreakdownSameStateVersusCrossState(t *testing.T) {
	lines := []gst.LineItem{line("1", item("1000", "18", 10), 1, "0")}

	same := gst.GSTBreakdown(lines, true)
	require.Len(t, same, 1)
	requireDecEqual(t, "18", same[0].Rate)
	requireDecEqual(t, "9", same[0].HalfRate)
	requireDecEqual(t, "90", same[0].CGST)
	requireDecEqual(t, "90", same[0].SGST)
	requireDecEqual(t, "0", same[0].IGST)

	cross := gst.GSTBreakdown(lines, false)
	require.Len(t, cross, 1)
	requireDecEqual(t, "0", cross[0].CGST)
	requireDecEqual(t, "0", cross[0].SGST)
	requireDecEqual(t, "180", cross[0].IGST)
}

func TestBreakdownTwoRatesSameState(t *testing.T) {
	lines := []gst.LineItem{
		line("1", item("1000", "18", 10), 1, "0"),
		line("2", item("2000", "5", 10), 1, "0"),
	}

	groups := gst.GSTBreakdown(lines, true)
	require.Len(t, groups, 2)

	requireDecEqual(t, "5", groups[0].Rate)
	requireDecEqual(t, "50", groups[0].CGST)
	requireDecEqual(t, "50", groups[0].SGST)
	requireDecEqual(t, "2000", groups[0].Taxable)

	requireDecEqual(t, "18", groups[1].Rate)
	requireDecEqual(t, "90", groups[1].CGST)
	requireDecEqual(t, "90", groups[1].SGST)

	totals := gst.Aggregate(lines)
	sum := groups[0].Total().Add(groups[1].Total())
	require.True(t, totals.TotalGST.Equal(sum))
	requireDecEqual(t, "280", totals.TotalGST)
}

func TestBreakdownGroupsByNominalRate(t *testing.T) {
	lines := []gst.LineItem{
		line("1", item("5500", "18", 150), 1, "0"),
		line("2", item("450", "18", 250), 2, "0"),
		line("3", item("380", "28", 500), 1, "0"),
	}

	groups := gst.GSTBreakdown(lines, false)
	require.Len(t, groups, 2)
	requireDecEqual(t, "18", groups[0].Rate)
	requireDecEqual(t, "6400", groups[0].Taxable)
	requireDecEqual(t, "1152", groups[0].IGST)
	requireDecEqual(t, "28", groups[1].Rate)
	requireDecEqual(t, "106.4", groups[1].IGST)
}

func TestBreakdownZeroRateFormsGroup(t *testing.T) {
	lines := []gst.LineItem{line("1", item("100", "0", 10), 3, "0")}

	for _, sameState := range []bool{true, false} {
		groups := gst.GSTBreakdown(lines, sameState)
		require.Len(t, groups, 1)
		requireDecEqual(t, "0", groups[0].Rate)
		requireDecEqual(t, "300", groups[0].Taxable)
		requireDecEqual(t, "0", groups[0].Total())
	}
}

func TestBreakdownSplitInvariant(t *testing.T) {
	lines := []gst.LineItem{
		line("1", item("5800", "18", 80), 3, "7.5"),
		line("2", item("380", "28", 500), 41, "12.25"),
		line("3", item("8", "5", 10000), 333, "1"),
		line("4", item("33", "12", 10), 1, "0"),
	}
	for _, sameState := range []bool{true, false} {
		for _, g := range gst.GSTBreakdown(lines, sameState) {
			require.True(t, g.CGST.Equal(g.SGST))
			splitUsed := g.CGST.IsPositive() || g.SGST.IsPositive()
			igstUsed := g.IGST.IsPositive()
			require.NotEqual(t, splitUsed, igstUsed, "exactly one of split or igst for rate %s", g.Rate)
			require.Equal(t, sameState, splitUsed)
		}
	}
}

func TestBreakdownEmpty(t *testing.T) {
	require.Empty(t, gst.GSTBreakdown(nil, true))
}

func TestIsSameState(t *testing.T) {
	require.True(t, gst.IsSameState("27", "27"))
	require.False(t, gst.IsSameState("29", "27"))
	require.False(t, gst.IsSameState("", "27"))
}

func TestTotalPayable(t *testing.T) {
	requireDecEqual(t, "56682", gst.TotalPayable(dec("11682"), dec("45000")))
	requireDecEqual(t, "11682", gst.TotalPayable(dec("11682"), decimal.Zero))
	requireDecEqual(t, "11582", gst.TotalPayable(dec("11682"), dec("-100")))
}

func TestTotalPayableUsesUnroundedGrandTotal(t *testing.T) {
	lines := []gst.LineItem{line("1", item("0.333", "18", 10), 1, "0")}
	totals := gst.Aggregate(lines)
	requireDecEqual(t, "0.39294", totals.GrandTotal)

	payable := gst.TotalPayable(totals.GrandTotal, dec("0.004"))
	requireDecEqual(t, "0.39694", payable)
	requireDecEqual(t, "0.4", gst.Round2(payable))
}
