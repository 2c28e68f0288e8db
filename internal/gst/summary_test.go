package gst_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

var maharashtraSeller = gst.Seller{Name: "ABC Trading Company", State: "Maharashtra", StateCode: "27"}

func TestSummarizeCrossStateWithPendingBalance(t *testing.T) {
	buyer := &gst.Company{ID: "3", Name: "Raj Builders & Developers", State: "Delhi", StateCode: "07", PendingAmount: dec("45000")}
	lines := []gst.LineItem{line("1", item("5500", "18", 150), 2, "10")}

	summary := gst.Summarize(lines, buyer, maharashtraSeller)

	require.False(t, summary.SameState)
	require.Len(t, summary.Lines, 1)
	requireDecEqual(t, "11000", summary.Lines[0].Gross)
	requireDecEqual(t, "1100", summary.Lines[0].Discount)
	requireDecEqual(t, "9900", summary.Lines[0].Taxable)
	requireDecEqual(t, "1782", summary.Lines[0].GST)
	requireDecEqual(t, "11682", summary.Lines[0].Total)
	requireDecEqual(t, "11682", summary.Totals.GrandTotal)
	require.Len(t, summary.Breakdown, 1)
	requireDecEqual(t, "1782", summary.Breakdown[0].IGST)
	requireDecEqual(t, "45000", summary.PreviousBalance)
	requireDecEqual(t, "56682", summary.TotalPayable)
}

func TestSummarizeComparesAgainstInjectedSeller(t *testing.T) {
	buyer := &gst.Company{ID: "2", StateCode: "29"}
	lines := []gst.LineItem{line("1", item("1000", "18", 10), 1, "0")}

	fromMumbai := gst.Summarize(lines, buyer, maharashtraSeller)
	require.False(t, fromMumbai.SameState)

	fromBengaluru := gst.Summarize(lines, buyer, gst.Seller{StateCode: "29"})
	require.True(t, fromBengaluru.SameState)
	requireDecEqual(t, "90", fromBengaluru.Breakdown[0].CGST)
	requireDecEqual(t, "90", fromBengaluru.Breakdown[0].SGST)
}

func TestSummarizeWithoutCompany(t *testing.T) {
	summary := gst.Summarize(nil, nil, maharashtraSeller)
	require.False(t, summary.SameState)
	require.Empty(t, summary.Lines)
	require.Empty(t, summary.Breakdown)
	requireDecEqual(t, "0", summary.Totals.GrandTotal)
	requireDecEqual(t, "0", summary.PreviousBalance)
	requireDecEqual(t, "0", summary.TotalPayable)
}
