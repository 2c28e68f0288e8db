package company

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/cache"
	"github.com/noah-isme/gst-invoice/internal/common"
	"github.com/noah-isme/gst-invoice/internal/events"
	"github.com/noah-isme/gst-invoice/internal/gst"
	"github.com/noah-isme/gst-invoice/internal/lock"
	"github.com/noah-isme/gst-invoice/internal/obs"
	"github.com/noah-isme/gst-invoice/internal/resilience"
)

var (
	// ErrGSTINRequired is returned when a lookup is attempted without a GST number.
	ErrGSTINRequired = errors.New("company: gst number is required")
	// ErrInvalidGSTIN is returned when a GST number does not have the GSTIN shape.
	ErrInvalidGSTIN = errors.New("company: invalid gst number")
)

// unregistered marks a buyer without a GST registration.
const unregistered = "NA"

// CreateInput is the payload accepted by Create.
type CreateInput struct {
	GSTNo         string          `json:"gstNo"`
	Name          string          `json:"name" validate:"required"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	State         string          `json:"state"`
	StateCode     string          `json:"stateCode" validate:"omitempty,statecode"`
	PendingAmount decimal.Decimal `json:"pendingAmount" validate:"gte=0"`
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Primary  Store
	Fallback *MemoryStore
	Guard    resilience.Guard
	Cache    *cache.Cache
	Locker   lock.Runner
	LockTTL  time.Duration
	Validate *validator.Validate
	Events   events.Emitter
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Service serves companies from the remote store with an in-memory fallback
// and applies balance updates under a per-company lock.
type Service struct {
	primary  Store
	fallback *MemoryStore
	guard    resilience.Guard
	cache    *cache.Cache
	locker   lock.Runner
	lockTTL  time.Duration
	validate *validator.Validate
	events   events.Emitter
	logger   zerolog.Logger
	Now      func() time.Time
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Fallback == nil {
		return nil, errors.New("company: fallback store is required")
	}
	validate := cfg.Validate
	if validate == nil {
		validate = common.NewValidator()
	}
	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	guard := cfg.Guard
	guard.Expected = append(append([]error(nil), guard.Expected...), ErrNotFound)
	return &Service{
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		guard:    guard,
		cache:    cfg.Cache,
		locker:   locker,
		lockTTL:  lockTTL,
		validate: validate,
		events:   cfg.Events,
		logger:   cfg.Logger,
		Now:      cfg.Now,
	}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// List returns every company.
func (s *Service) List(ctx context.Context) ([]gst.Company, error) {
	var cached []gst.Company
	if ok, err := s.cache.GetJSON(ctx, cache.KeyCompanyList, &cached); err != nil {
		s.logger.Warn().Err(err).Msg("company_cache_read_failed")
	} else if ok {
		return cached, nil
	}
	if s.primary != nil {
		var companies []gst.Company
		err := s.guard.Do(ctx, func(ctx context.Context) error {
			var err error
			companies, err = s.primary.List(ctx)
			return err
		})
		if err != nil {
			s.recordFallback("list", err)
		} else if len(companies) > 0 {
			companies = overlay(companies, s.fallback.Locals())
			if err := s.cache.SetJSON(ctx, cache.KeyCompanyList, companies); err != nil {
				s.logger.Warn().Err(err).Msg("company_cache_write_failed")
			}
			return companies, nil
		}
	}
	return s.fallback.List(ctx)
}

// Search filters companies by a case-insensitive substring of name or GST number.
func (s *Service) Search(ctx context.Context, query string) ([]gst.Company, error) {
	companies, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return companies, nil
	}
	out := make([]gst.Company, 0, len(companies))
	for _, c := range companies {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.GSTNo), q) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Get returns a single company by id.
func (s *Service) Get(ctx context.Context, id string) (gst.Company, error) {
	c, _, err := s.find(ctx, strings.TrimSpace(id))
	return c, err
}

// LookupByGSTIN finds the company registered under gstNo.
func (s *Service) LookupByGSTIN(ctx context.Context, gstNo string) (gst.Company, error) {
	gstNo = gst.NormalizeGSTIN(gstNo)
	if gstNo == "" {
		return gst.Company{}, ErrGSTINRequired
	}
	if !gst.ValidGSTIN(gstNo) {
		return gst.Company{}, ErrInvalidGSTIN
	}
	companies, err := s.List(ctx)
	if err != nil {
		return gst.Company{}, err
	}
	for _, c := range companies {
		if gst.NormalizeGSTIN(c.GSTNo) == gstNo {
			return c, nil
		}
	}
	return gst.Company{}, ErrNotFound
}

// Create validates and stores a new company. A missing state code is derived
// from a valid GSTIN.
func (s *Service) Create(ctx context.Context, input CreateInput) (gst.Company, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.GSTNo = gst.NormalizeGSTIN(input.GSTNo)
	input.StateCode = strings.TrimSpace(input.StateCode)
	input.State = strings.TrimSpace(input.State)
	if err := common.ValidateStruct(s.validate, input); err != nil {
		return gst.Company{}, err
	}
	if input.GSTNo != "" && input.GSTNo != unregistered && !gst.ValidGSTIN(input.GSTNo) {
		return gst.Company{}, common.ValidationError("invalid input", map[string]string{"gstNo": "must be a valid GSTIN"})
	}
	if input.StateCode == "" && gst.ValidGSTIN(input.GSTNo) {
		if code, ok := gst.StateCodeFromGSTIN(input.GSTNo); ok {
			input.StateCode = code
		}
	}
	if input.State == "" && input.StateCode != "" {
		input.State = gst.StateName(input.StateCode)
	}

	c := gst.Company{
		ID:            uuid.NewString(),
		GSTNo:         input.GSTNo,
		Name:          input.Name,
		Phone:         strings.TrimSpace(input.Phone),
		Address:       strings.TrimSpace(input.Address),
		State:         input.State,
		StateCode:     input.StateCode,
		PendingAmount: input.PendingAmount,
	}

	stored := false
	if s.primary != nil {
		err := s.guard.Do(ctx, func(ctx context.Context) error {
			return s.primary.Create(ctx, c)
		})
		if err == nil {
			stored = true
		} else {
			s.recordFallback("create", err)
		}
	}
	if !stored {
		if err := s.fallback.Create(ctx, c); err != nil {
			return gst.Company{}, fmt.Errorf("company: create: %w", err)
		}
	}
	s.invalidate(ctx)
	s.emit(ctx, events.TopicCompanyCreated, c.ID, c)
	return c, nil
}

// AddToBalance adds amount to the company's pending balance and stamps the
// last transaction time. Concurrent updates for one company are serialised.
// When the remote write fails the new balance is kept locally and pushed on
// the next successful update.
func (s *Service) AddToBalance(ctx context.Context, id string, amount decimal.Decimal) (gst.Company, error) {
	id = strings.TrimSpace(id)
	var updated gst.Company
	err := s.locker.WithLock(ctx, lock.CompanyKey(id), s.lockTTL, func(ctx context.Context) error {
		current, from, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		at := s.now()
		current.PendingAmount = current.PendingAmount.Add(amount)
		current.LastTransaction = &at

		saved := from != fromMemory && s.syncBalance(ctx, current, from == fromLocal)
		if !saved || from == fromLocal {
			if err := s.fallback.Create(ctx, current); err != nil {
				return err
			}
		}
		if saved && from == fromLocal {
			s.fallback.Synced(id)
		}
		updated = current
		return nil
	})
	if err != nil {
		return gst.Company{}, err
	}
	s.invalidate(ctx)
	s.emit(ctx, events.TopicCompanyBalanceUpdated, updated.ID, map[string]any{
		"companyId":     updated.ID,
		"amount":        amount,
		"pendingAmount": updated.PendingAmount,
	})
	return updated, nil
}

// syncBalance writes c's balance to the remote store. A local company the
// remote store has never seen is inserted whole.
func (s *Service) syncBalance(ctx context.Context, c gst.Company, local bool) bool {
	if s.primary == nil {
		return false
	}
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		err := s.primary.UpdateBalance(ctx, c.ID, c.PendingAmount, *c.LastTransaction)
		if local && errors.Is(err, ErrNotFound) {
			return s.primary.Create(ctx, c)
		}
		return err
	})
	if err != nil {
		s.recordFallback("update_balance", err)
		return false
	}
	return true
}

type origin int

const (
	fromMemory origin = iota
	fromRemote
	fromLocal
)

// find prefers a local copy over the remote row it shadows.
func (s *Service) find(ctx context.Context, id string) (gst.Company, origin, error) {
	if id == "" {
		return gst.Company{}, fromMemory, ErrNotFound
	}
	if c, ok := s.fallback.Local(id); ok {
		return c, fromLocal, nil
	}
	if s.primary != nil {
		var c gst.Company
		err := s.guard.Do(ctx, func(ctx context.Context) error {
			var err error
			c, err = s.primary.Get(ctx, id)
			return err
		})
		switch {
		case err == nil:
			return c, fromRemote, nil
		case errors.Is(err, ErrNotFound):
		default:
			s.recordFallback("get", err)
		}
	}
	c, err := s.fallback.Get(ctx, id)
	return c, fromMemory, err
}

// overlay replaces remote rows with their local copies and appends local
// companies the remote store does not have.
func overlay(remote, local []gst.Company) []gst.Company {
	if len(local) == 0 {
		return remote
	}
	byID := make(map[string]int, len(remote))
	for i, c := range remote {
		byID[c.ID] = i
	}
	out := append([]gst.Company(nil), remote...)
	for _, c := range local {
		if i, ok := byID[c.ID]; ok {
			out[i] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyCompanyList); err != nil {
		s.logger.Warn().Err(err).Msg("company_cache_invalidate_failed")
	}
}

func (s *Service) emit(ctx context.Context, topic, id string, payload any) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, topic, id, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("company_event_failed")
	}
}

func (s *Service) recordFallback(op string, err error) {
	obs.RecordStoreFallback("company", op)
	s.logger.Warn().Err(err).
		Str("store", "company").
		Str("op", op).
		Bool("circuit_open", errors.Is(err, resilience.ErrOpenCircuit)).
		Msg("store_fallback")
}
