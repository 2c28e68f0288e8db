// Package seed provides the fallback catalog used when the remote store is
// empty or unreachable. Callers receive copies and inject them explicitly.
package seed

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

// Catalog bundles the seed records handed to stores and services.
type Catalog struct {
	Items     []gst.InventoryItem
	Companies []gst.Company
	Seller    gst.Seller
	Bank      gst.BankDetails
}

// Empty returns a catalog without items or companies but with the default
// seller identity and bank details.
func Empty() Catalog {
	return Catalog{Seller: DefaultSeller(), Bank: DefaultBank()}
}

// Default returns a fresh copy of the built-in construction-materials catalog.
func Default() Catalog {
	return Catalog{
		Items:     Items(),
		Companies: Companies(),
		Seller:    DefaultSeller(),
		Bank:      DefaultBank(),
	}
}

// Items returns the seed inventory.
func Items() []gst.InventoryItem {
	return []gst.InventoryItem{
		newItem("1", "Steel Bars (10mm)", "7214", 5500, 150, "MT", 18),
		newItem("2", "Cement (OPC 53)", "2523", 380, 500, "Bags", 28),
		newItem("3", "TMT Bars (12mm)", "7214", 5800, 80, "MT", 18),
		newItem("4", "Bricks (Red)", "6901", 8, 10000, "Pcs", 5),
		newItem("5", "Sand (River)", "2505", 2500, 200, "CFT", 5),
		newItem("6", "Aggregate (20mm)", "2517", 1800, 300, "CFT", 5),
		newItem("7", `PVC Pipes (4")`, "3917", 450, 250, "Pcs", 18),
		newItem("8", "Electrical Wire (1.5mm)", "8544", 2800, 50, "Coils", 18),
		newItem("9", "Paint (Exterior)", "3208", 2400, 30, "Bucket", 28),
		newItem("10", "Tiles (Ceramic)", "6908", 55, 2000, "Sqft", 18),
	}
}

// Companies returns the seed customers.
func Companies() []gst.Company {
	return []gst.Company{
		{
			ID:              "1",
			GSTNo:           "27AABCU9603R1ZM",
			Name:            "Sharma Constructions Pvt Ltd",
			Address:         "123, Industrial Area, Sector 5",
			State:           "Maharashtra",
			StateCode:       "27",
			PendingAmount:   decimal.NewFromInt(125000),
			LastTransaction: date(2025, time.January, 15),
		},
		{
			ID:              "2",
			GSTNo:           "29AABCT1332L1ZL",
			Name:            "BuildWell Infrastructure",
			Address:         "456, Business Park, Phase 2",
			State:           "Karnataka",
			StateCode:       "29",
			PendingAmount:   decimal.Zero,
			LastTransaction: date(2025, time.January, 28),
		},
		{
			ID:              "3",
			GSTNo:           "07AAACR5055K1Z6",
			Name:            "Raj Builders & Developers",
			Address:         "789, Commercial Complex, Ring Road",
			State:           "Delhi",
			StateCode:       "07",
			PendingAmount:   decimal.NewFromInt(45000),
			LastTransaction: date(2025, time.February, 1),
		},
		{
			ID:            "4",
			GSTNo:         "33AABCS1429B1ZR",
			Name:          "Southern Infra Solutions",
			Address:       "321, Tech Park, OMR Road",
			State:         "Tamil Nadu",
			StateCode:     "33",
			PendingAmount: decimal.Zero,
		},
	}
}

// DefaultSeller is the issuing business used when no seller is configured.
func DefaultSeller() gst.Seller {
	return gst.Seller{
		Name:      "ABC Trading Company",
		Address:   "100, Main Market, Industrial Zone",
		City:      "Mumbai",
		State:     "Maharashtra",
		StateCode: "27",
		Pincode:   "400001",
		GSTNo:     "27AABCA1234A1Z5",
		PAN:       "AABCA1234A",
		Phone:     "+91 98765 43210",
		Email:     "sales@abctrading.com",
	}
}

// DefaultBank is printed on invoices when no bank account is configured.
func DefaultBank() gst.BankDetails {
	return gst.BankDetails{
		BankName:      "State Bank of India",
		AccountName:   "ABC Trading Company",
		AccountNumber: "1234567890123456",
		IFSC:          "SBIN0001234",
		Branch:        "Industrial Area Branch, Mumbai",
	}
}

func newItem(id, name, hsn string, rate int64, stock int, unit string, gstRate int64) gst.InventoryItem {
	return gst.InventoryItem{
		ID:      id,
		Name:    name,
		HSN:     hsn,
		Rate:    decimal.NewFromInt(rate),
		Stock:   stock,
		Unit:    unit,
		GSTRate: decimal.NewFromInt(gstRate),
	}
}

func date(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
