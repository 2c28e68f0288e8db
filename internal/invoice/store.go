package invoice

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

// Invoice is a finalized invoice. It carries a complete snapshot so
// documents can be re-rendered after the catalog or the buyer changes.
// Company holds the buyer as it was before an unpaid total was added to
// its balance.
type Invoice struct {
	ID           string          `json:"id"`
	Number       string          `json:"number"`
	IssuedAt     time.Time       `json:"issuedAt"`
	Seller       gst.Seller      `json:"seller"`
	Bank         gst.BankDetails `json:"bank"`
	Company      gst.Company     `json:"company"`
	Lines        []gst.LineItem  `json:"lines"`
	Options      Options         `json:"options"`
	Paid         bool            `json:"paid"`
	GrandTotal   decimal.Decimal `json:"grandTotal"`
	TotalPayable decimal.Decimal `json:"totalPayable"`
}

// Summary recomputes the invoice figures from the snapshot.
func (inv Invoice) Summary() gst.Summary {
	company := inv.Company
	return gst.Summarize(inv.Lines, &company, inv.Seller)
}

// Store persists finalized invoices.
type Store interface {
	// Create fails with ErrDuplicateNumber when the number is taken.
	Create(ctx context.Context, inv Invoice) error
	Get(ctx context.Context, id string) (Invoice, error)
	// List returns invoices newest first.
	List(ctx context.Context) ([]Invoice, error)
}

// MemoryStore keeps invoices in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]Invoice
	numbers  map[string]string
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{invoices: make(map[string]Invoice), numbers: make(map[string]string)}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, inv Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.numbers[inv.Number]; ok && owner != inv.ID {
		return ErrDuplicateNumber
	}
	inv.Lines = append([]gst.LineItem(nil), inv.Lines...)
	m.invoices[inv.ID] = inv
	m.numbers[inv.Number] = inv.ID
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	inv.Lines = append([]gst.LineItem(nil), inv.Lines...)
	return inv, nil
}

// List implements Store.
func (m *MemoryStore) List(context.Context) ([]Invoice, error) {
	m.mu.RLock()
	out := make([]Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		out = append(out, inv)
	}
	m.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(invoices []Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		if invoices[i].IssuedAt.Equal(invoices[j].IssuedAt) {
			return invoices[i].Number > invoices[j].Number
		}
		return invoices[i].IssuedAt.After(invoices[j].IssuedAt)
	})
}
