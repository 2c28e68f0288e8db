package company

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

// ErrNotFound is returned when no company matches.
var ErrNotFound = errors.New("company: not found")

// Store persists customer companies.
type Store interface {
	List(ctx context.Context) ([]gst.Company, error)
	Get(ctx context.Context, id string) (gst.Company, error)
	Create(ctx context.Context, company gst.Company) error
	UpdateBalance(ctx context.Context, id string, pending decimal.Decimal, at time.Time) error
}

// MemoryStore keeps companies in insertion order. Companies written after
// seeding are marked local: they exist only in this process, or shadow a
// remote row that missed an update.
type MemoryStore struct {
	mu        sync.RWMutex
	companies []gst.Company
	local     map[string]struct{}
}

// NewMemoryStore seeds a store with a copy of companies.
func NewMemoryStore(companies []gst.Company) *MemoryStore {
	return &MemoryStore{
		companies: append([]gst.Company(nil), companies...),
		local:     make(map[string]struct{}),
	}
}

// List implements Store.
func (m *MemoryStore) List(context.Context) ([]gst.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]gst.Company(nil), m.companies...), nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (gst.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.index(id); i >= 0 {
		return m.companies[i], nil
	}
	return gst.Company{}, ErrNotFound
}

// Create implements Store. A company with an existing id replaces it.
func (m *MemoryStore) Create(_ context.Context, company gst.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.local[company.ID] = struct{}{}
	if i := m.index(company.ID); i >= 0 {
		m.companies[i] = company
		return nil
	}
	m.companies = append(m.companies, company)
	return nil
}

// UpdateBalance implements Store.
func (m *MemoryStore) UpdateBalance(_ context.Context, id string, pending decimal.Decimal, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return ErrNotFound
	}
	m.companies[i].PendingAmount = pending
	ts := at
	m.companies[i].LastTransaction = &ts
	m.local[id] = struct{}{}
	return nil
}

// Local returns the company when it was written in this process and not yet
// synced to the remote store.
func (m *MemoryStore) Local(id string) (gst.Company, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.local[id]; !ok {
		return gst.Company{}, false
	}
	if i := m.index(id); i >= 0 {
		return m.companies[i], true
	}
	return gst.Company{}, false
}

// Locals returns every local company in insertion order.
func (m *MemoryStore) Locals() []gst.Company {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]gst.Company, 0, len(m.local))
	for _, c := range m.companies {
		if _, ok := m.local[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Synced clears the local mark once the remote store holds the company.
func (m *MemoryStore) Synced(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.local, id)
}

func (m *MemoryStore) index(id string) int {
	for i := range m.companies {
		if m.companies[i].ID == id {
			return i
		}
	}
	return -1
}
