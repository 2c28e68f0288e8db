package gst

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a catalog entry that can be placed on an invoice.
type InventoryItem struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	HSN     string          `json:"hsn"`
	Rate    decimal.Decimal `json:"rate"`
	Stock   int             `json:"stock"`
	Unit    string          `json:"unit"`
	GSTRate decimal.Decimal `json:"gstRate"`
}

// Company is the buyer an invoice is raised against.
type Company struct {
	ID              string          `json:"id"`
	GSTNo           string          `json:"gstNo"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone,omitempty"`
	Address         string          `json:"address"`
	State           string          `json:"state"`
	StateCode       string          `json:"stateCode"`
	PendingAmount   decimal.Decimal `json:"pendingAmount"`
	LastTransaction *time.Time      `json:"lastTransaction,omitempty"`
}

// LineItem is a single line on an invoice. Item is a copy of the catalog
// entry taken when the line was added.
type LineItem struct {
	ID       string          `json:"id"`
	Item     InventoryItem   `json:"item"`
	Quantity int             `json:"quantity"`
	Discount decimal.Decimal `json:"discount"`
}

// Seller identifies the business issuing invoices.
type Seller struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	StateCode string `json:"stateCode"`
	Pincode   string `json:"pincode"`
	GSTNo     string `json:"gstNo"`
	PAN       string `json:"pan"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// BankDetails are printed on invoices for payment by transfer.
type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	IFSC          string `json:"ifsc"`
	Branch        string `json:"branch"`
}
