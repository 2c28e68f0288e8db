package seed_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gst-invoice/internal/gst"
	"github.com/noah-isme/gst-invoice/internal/seed"
)

func TestDefaultCatalogIsACopy(t *testing.T) {
	first := seed.Default()
	first.Items[0].Stock = 0
	first.Companies[0].Name = "mutated"

	second := seed.Default()
	require.Equal(t, 150, second.Items[0].Stock)
	require.Equal(t, "Sharma Constructions Pvt Ltd", second.Companies[0].Name)
}

func TestDefaultCatalogShape(t *testing.T) {
	c := seed.Default()
	require.Len(t, c.Items, 10)
	require.Len(t, c.Companies, 4)
	require.Equal(t, "27", c.Seller.StateCode)

	for _, it := range c.Items {
		require.False(t, it.Rate.IsNegative())
		require.True(t, it.GSTRate.GreaterThanOrEqual(decimal.Zero) && it.GSTRate.LessThanOrEqual(decimal.NewFromInt(100)))
		require.GreaterOrEqual(t, it.Stock, 0)
	}
	for _, co := range c.Companies {
		require.True(t, gst.ValidStateCode(co.StateCode), co.StateCode)
		code, ok := gst.StateCodeFromGSTIN(co.GSTNo)
		require.True(t, ok)
		require.Equal(t, co.StateCode, code)
	}
}

func TestEmptyCatalogKeepsSeller(t *testing.T) {
	c := seed.Empty()
	require.Empty(t, c.Items)
	require.Empty(t, c.Companies)
	require.Equal(t, "ABC Trading Company", c.Seller.Name)
	require.Equal(t, "SBIN0001234", c.Bank.IFSC)
}
