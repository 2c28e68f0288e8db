package invoice

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/noah-isme/gst-invoice/internal/cache"
)

// DraftStore persists drafts between requests.
type DraftStore interface {
	Get(ctx context.Context, id string) (Draft, error)
	Save(ctx context.Context, d Draft) error
	Delete(ctx context.Context, id string) error
}

// NewDraftStore keeps drafts in Redis when the cache is backed by a client
// and in process memory otherwise.
func NewDraftStore(c *cache.Cache) DraftStore {
	if c.Enabled() {
		return RedisDraftStore{Cache: c}
	}
	return NewMemoryDraftStore()
}

// RedisDraftStore stores drafts as JSON under cache.KeyDraft. Entries expire
// with the cache TTL.
type RedisDraftStore struct {
	Cache *cache.Cache
}

// Get implements DraftStore.
func (s RedisDraftStore) Get(ctx context.Context, id string) (Draft, error) {
	var d Draft
	ok, err := s.Cache.GetJSON(ctx, cache.KeyDraft(id), &d)
	if err != nil {
		return Draft{}, err
	}
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

// Save implements DraftStore.
func (s RedisDraftStore) Save(ctx context.Context, d Draft) error {
	return s.Cache.SetJSON(ctx, cache.KeyDraft(d.ID), d)
}

// Delete implements DraftStore.
func (s RedisDraftStore) Delete(ctx context.Context, id string) error {
	return s.Cache.Delete(ctx, cache.KeyDraft(id))
}

// MemoryDraftStore keeps drafts in process memory. Drafts are stored as JSON
// so callers never share line slices.
type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string][]byte
}

// NewMemoryDraftStore constructs an empty store.
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string][]byte)}
}

// Get implements DraftStore.
func (m *MemoryDraftStore) Get(_ context.Context, id string) (Draft, error) {
	m.mu.RLock()
	raw, ok := m.drafts[id]
	m.mu.RUnlock()
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Save implements DraftStore.
func (m *MemoryDraftStore) Save(_ context.Context, d Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.drafts[d.ID] = raw
	m.mu.Unlock()
	return nil
}

// Delete implements DraftStore.
func (m *MemoryDraftStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.drafts, id)
	m.mu.Unlock()
	return nil
}
