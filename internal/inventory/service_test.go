package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gst-invoice/internal/cache"
	"github.com/noah-isme/gst-invoice/internal/common"
	"github.com/noah-isme/gst-invoice/internal/events"
	"github.com/noah-isme/gst-invoice/internal/gst"
	"github.com/noah-isme/gst-invoice/internal/inventory"
	"github.com/noah-isme/gst-invoice/internal/resilience"
	"github.com/noah-isme/gst-invoice/internal/seed"
)

type flakyStore struct {
	mu    sync.Mutex
	items []gst.InventoryItem
	err   error
	lists int
}

func (f *flakyStore) List(context.Context) ([]gst.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	return append([]gst.InventoryItem(nil), f.items...), nil
}

func (f *flakyStore) Get(_ context.Context, id string) (gst.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return gst.InventoryItem{}, f.err
	}
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return gst.InventoryItem{}, inventory.ErrNotFound
}

func (f *flakyStore) Create(_ context.Context, item gst.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, item)
	return nil
}

type captureEmitter struct {
	topics []string
}

func (c *captureEmitter) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	c.topics = append(c.topics, topic)
	return events.Event{Topic: topic, AggregateID: aggregateID}, nil
}

func newService(t *testing.T, primary inventory.Store, c *cache.Cache, emitter events.Emitter) *inventory.Service {
	t.Helper()
	svc, err := inventory.NewService(inventory.ServiceConfig{
		Primary:  primary,
		Fallback: inventory.NewMemoryStore(seed.Items()),
		Guard:    resilience.Guard{Breaker: resilience.NewBreaker(2, 0.5, time.Minute)},
		Cache:    c,
		Events:   emitter,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc
}

func TestListFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &flakyStore{err: errors.New("connection refused")}
	svc := newService(t, primary, nil, nil)

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 10)
	require.Equal(t, "Steel Bars (10mm)", items[0].Name)
}

func TestListFallsBackWhenPrimaryEmpty(t *testing.T) {
	svc := newService(t, &flakyStore{}, nil, nil)
	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 10)
}

func TestListUsesPrimaryAndCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	primary := &flakyStore{items: []gst.InventoryItem{{ID: "a", Name: "Glass", Rate: decimal.NewFromInt(10), Stock: 4, Unit: "Pcs", GSTRate: decimal.NewFromInt(12)}}}
	svc := newService(t, primary, cache.New(client, time.Minute), nil)
	ctx := context.Background()

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, primary.lists)

	_, err = svc.Create(ctx, inventory.CreateInput{Name: "Door", Unit: "Pcs", Rate: decimal.NewFromInt(900), Stock: 3, GSTRate: decimal.NewFromInt(18)})
	require.NoError(t, err)
	items, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 2, primary.lists)
}

func TestSearchMatchesNameAndHSN(t *testing.T) {
	svc := newService(t, nil, nil, nil)
	ctx := context.Background()

	byName, err := svc.Search(ctx, "  steel ")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	byHSN, err := svc.Search(ctx, "7214")
	require.NoError(t, err)
	require.Len(t, byHSN, 2)

	all, err := svc.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 10)
}

func TestGetChecksFallbackAfterPrimaryMiss(t *testing.T) {
	svc := newService(t, &flakyStore{}, nil, nil)
	item, err := svc.Get(context.Background(), "2")
	require.NoError(t, err)
	require.Equal(t, "Cement (OPC 53)", item.Name)

	_, err = svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newService(t, nil, nil, nil)
	_, err := svc.Create(context.Background(), inventory.CreateInput{
		Rate:    decimal.NewFromInt(-5),
		Stock:   -1,
		GSTRate: decimal.NewFromInt(120),
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
	details := appErr.Details.(map[string]string)
	require.Contains(t, details, "name")
	require.Contains(t, details, "unit")
	require.Contains(t, details, "rate")
	require.Contains(t, details, "stock")
	require.Contains(t, details, "gstRate")
}

func TestCreateKeepsItemWhenPrimaryDown(t *testing.T) {
	emitter := &captureEmitter{}
	svc := newService(t, &flakyStore{err: errors.New("down")}, nil, emitter)
	ctx := context.Background()

	item, err := svc.Create(ctx, inventory.CreateInput{Name: "Plywood", HSN: "4412", Unit: "Sheet", Rate: decimal.NewFromInt(1200), Stock: 20, GSTRate: decimal.NewFromInt(18)})
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)

	got, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "Plywood", got.Name)
	require.Equal(t, []string{events.TopicInventoryCreated}, emitter.topics)
}

func TestItemsCreatedDuringOutageStayListed(t *testing.T) {
	primary := &flakyStore{
		items: []gst.InventoryItem{{ID: "a", Name: "Glass", Rate: decimal.NewFromInt(10), Stock: 4, Unit: "Pcs", GSTRate: decimal.NewFromInt(12)}},
		err:   errors.New("down"),
	}
	svc := newService(t, primary, nil, nil)
	ctx := context.Background()

	item, err := svc.Create(ctx, inventory.CreateInput{Name: "Plywood", HSN: "4412", Unit: "Sheet", Rate: decimal.NewFromInt(1200), Stock: 20, GSTRate: decimal.NewFromInt(18)})
	require.NoError(t, err)

	primary.mu.Lock()
	primary.err = nil
	primary.mu.Unlock()

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "a", items[0].ID)
	require.Equal(t, item.ID, items[1].ID)

	found, err := svc.Search(ctx, "plywood")
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, inventory.StatusOutOfStock, inventory.StatusFor(0, 50))
	require.Equal(t, inventory.StatusLowStock, inventory.StatusFor(30, 50))
	require.Equal(t, inventory.StatusInStock, inventory.StatusFor(50, 50))

	svc := newService(t, nil, nil, nil)
	views := svc.Views([]gst.InventoryItem{{ID: "x", Stock: 30}})
	require.Equal(t, inventory.StatusLowStock, views[0].Status)
}
