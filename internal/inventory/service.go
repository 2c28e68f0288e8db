package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/cache"
	"github.com/noah-isme/gst-invoice/internal/common"
	"github.com/noah-isme/gst-invoice/internal/events"
	"github.com/noah-isme/gst-invoice/internal/gst"
	"github.com/noah-isme/gst-invoice/internal/obs"
	"github.com/noah-isme/gst-invoice/internal/resilience"
)

// DefaultLowStockThreshold is the stock level below which an item is low.
const DefaultLowStockThreshold = 50

// StockStatus classifies an item's stock level.
type StockStatus string

const (
	StatusOutOfStock StockStatus = "out_of_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusInStock    StockStatus = "in_stock"
)

// StatusFor classifies stock against the low threshold.
func StatusFor(stock, lowThreshold int) StockStatus {
	switch {
	case stock <= 0:
		return StatusOutOfStock
	case stock < lowThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// ItemView is an inventory item annotated with its stock status.
type ItemView struct {
	gst.InventoryItem
	Status StockStatus `json:"status"`
}

// CreateInput is the payload accepted by Create.
type CreateInput struct {
	Name    string          `json:"name" validate:"required"`
	HSN     string          `json:"hsn"`
	Rate    decimal.Decimal `json:"rate" validate:"gte=0"`
	Stock   int             `json:"stock" validate:"gte=0"`
	Unit    string          `json:"unit" validate:"required"`
	GSTRate decimal.Decimal `json:"gstRate" validate:"gte=0,lte=100"`
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Primary           Store
	Fallback          *MemoryStore
	Guard             resilience.Guard
	Cache             *cache.Cache
	Validate          *validator.Validate
	Events            events.Emitter
	Logger            zerolog.Logger
	LowStockThreshold int
}

// Service serves inventory from the remote store, falling back to the
// in-memory store whenever the remote store is missing, failing or empty.
type Service struct {
	primary  Store
	fallback *MemoryStore
	guard    resilience.Guard
	cache    *cache.Cache
	validate *validator.Validate
	events   events.Emitter
	logger   zerolog.Logger
	lowStock int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Fallback == nil {
		return nil, errors.New("inventory: fallback store is required")
	}
	validate := cfg.Validate
	if validate == nil {
		validate = common.NewValidator()
	}
	lowStock := cfg.LowStockThreshold
	if lowStock <= 0 {
		lowStock = DefaultLowStockThreshold
	}
	guard := cfg.Guard
	guard.Expected = append(append([]error(nil), guard.Expected...), ErrNotFound)
	return &Service{
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		guard:    guard,
		cache:    cfg.Cache,
		validate: validate,
		events:   cfg.Events,
		logger:   cfg.Logger,
		lowStock: lowStock,
	}, nil
}

// List returns every item.
func (s *Service) List(ctx context.Context) ([]gst.InventoryItem, error) {
	var cached []gst.InventoryItem
	if ok, err := s.cache.GetJSON(ctx, cache.KeyInventoryList, &cached); err != nil {
		s.logger.Warn().Err(err).Msg("inventory_cache_read_failed")
	} else if ok {
		return cached, nil
	}

	items, remote := s.listRemote(ctx)
	if !remote {
		return s.fallback.List(ctx)
	}
	if err := s.cache.SetJSON(ctx, cache.KeyInventoryList, items); err != nil {
		s.logger.Warn().Err(err).Msg("inventory_cache_write_failed")
	}
	return items, nil
}

func (s *Service) listRemote(ctx context.Context) ([]gst.InventoryItem, bool) {
	if s.primary == nil {
		return nil, false
	}
	var items []gst.InventoryItem
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.primary.List(ctx)
		return err
	})
	if err != nil {
		s.recordFallback("list", err)
		return nil, false
	}
	if len(items) == 0 {
		return nil, false
	}
	return withLocal(items, s.fallback.Locals()), true
}

// withLocal appends items created locally while the remote store was down.
func withLocal(remote, local []gst.InventoryItem) []gst.InventoryItem {
	if len(local) == 0 {
		return remote
	}
	seen := make(map[string]struct{}, len(remote))
	for _, it := range remote {
		seen[it.ID] = struct{}{}
	}
	for _, it := range local {
		if _, ok := seen[it.ID]; !ok {
			remote = append(remote, it)
		}
	}
	return remote
}

// Search filters items by a case-insensitive substring of name or HSN code.
func (s *Service) Search(ctx context.Context, query string) ([]gst.InventoryItem, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items, nil
	}
	out := make([]gst.InventoryItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) || strings.Contains(strings.ToLower(it.HSN), q) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Get returns a single item by id.
func (s *Service) Get(ctx context.Context, id string) (gst.InventoryItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return gst.InventoryItem{}, ErrNotFound
	}
	if s.primary != nil {
		var item gst.InventoryItem
		err := s.guard.Do(ctx, func(ctx context.Context) error {
			var err error
			item, err = s.primary.Get(ctx, id)
			return err
		})
		switch {
		case err == nil:
			return item, nil
		case errors.Is(err, ErrNotFound):
		default:
			s.recordFallback("get", err)
		}
	}
	return s.fallback.Get(ctx, id)
}

// Create validates and stores a new item.
func (s *Service) Create(ctx context.Context, input CreateInput) (gst.InventoryItem, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Unit = strings.TrimSpace(input.Unit)
	input.HSN = strings.TrimSpace(input.HSN)
	if err := common.ValidateStruct(s.validate, input); err != nil {
		return gst.InventoryItem{}, err
	}
	item := gst.InventoryItem{
		ID:      uuid.NewString(),
		Name:    input.Name,
		HSN:     input.HSN,
		Rate:    input.Rate,
		Stock:   input.Stock,
		Unit:    input.Unit,
		GSTRate: input.GSTRate,
	}

	stored := false
	if s.primary != nil {
		err := s.guard.Do(ctx, func(ctx context.Context) error {
			return s.primary.Create(ctx, item)
		})
		if err == nil {
			stored = true
		} else {
			s.recordFallback("create", err)
		}
	}
	if !stored {
		if err := s.fallback.Create(ctx, item); err != nil {
			return gst.InventoryItem{}, fmt.Errorf("inventory: create: %w", err)
		}
	}
	if err := s.cache.Delete(ctx, cache.KeyInventoryList); err != nil {
		s.logger.Warn().Err(err).Msg("inventory_cache_invalidate_failed")
	}
	if s.events != nil {
		if _, err := s.events.Emit(ctx, events.TopicInventoryCreated, item.ID, item); err != nil {
			s.logger.Warn().Err(err).Str("item_id", item.ID).Msg("inventory_event_failed")
		}
	}
	return item, nil
}

// Views annotates items with their stock status.
func (s *Service) Views(items []gst.InventoryItem) []ItemView {
	out := make([]ItemView, len(items))
	for i, it := range items {
		out[i] = ItemView{InventoryItem: it, Status: StatusFor(it.Stock, s.lowStock)}
	}
	return out
}

func (s *Service) recordFallback(op string, err error) {
	obs.RecordStoreFallback("inventory", op)
	s.logger.Warn().Err(err).
		Str("store", "inventory").
		Str("op", op).
		Bool("circuit_open", errors.Is(err, resilience.ErrOpenCircuit)).
		Msg("store_fallback")
}
