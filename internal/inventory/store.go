package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/noah-isme/gst-invoice/internal/gst"
)

// ErrNotFound is returned when no item matches the requested id.
var ErrNotFound = errors.New("inventory: item not found")

// Store persists inventory items.
type Store interface {
	List(ctx context.Context) ([]gst.InventoryItem, error)
	Get(ctx context.Context, id string) (gst.InventoryItem, error)
	Create(ctx context.Context, item gst.InventoryItem) error
}

// MemoryStore keeps items in insertion order. It backs the service when the
// remote store is absent or failing. Items created after seeding are local.
type MemoryStore struct {
	mu    sync.RWMutex
	items []gst.InventoryItem
	local map[string]struct{}
}

// NewMemoryStore seeds a store with a copy of items.
func NewMemoryStore(items []gst.InventoryItem) *MemoryStore {
	return &MemoryStore{
		items: append([]gst.InventoryItem(nil), items...),
		local: make(map[string]struct{}),
	}
}

// List implements Store.
func (m *MemoryStore) List(context.Context) ([]gst.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]gst.InventoryItem(nil), m.items...), nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (gst.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return gst.InventoryItem{}, ErrNotFound
}

// Create implements Store. An item with an existing id replaces it.
func (m *MemoryStore) Create(_ context.Context, item gst.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.local[item.ID] = struct{}{}
	for i := range m.items {
		if m.items[i].ID == item.ID {
			m.items[i] = item
			return nil
		}
	}
	m.items = append(m.items, item)
	return nil
}

// Locals returns the items created in this process, in insertion order.
func (m *MemoryStore) Locals() []gst.InventoryItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]gst.InventoryItem, 0, len(m.local))
	for _, it := range m.items {
		if _, ok := m.local[it.ID]; ok {
			out = append(out, it)
		}
	}
	return out
}
