package invoice

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
	"github.com/noah-isme/gst-invoice/internal/render"
	"github.com/noah-isme/gst-invoice/internal/resilience"
)

// Document formats served by Document.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

const numberAttempts = 5

// Catalog resolves inventory items by id.
type Catalog interface {
	Get(ctx context.Context, id string) (gst.InventoryItem, error)
}

// Companies resolves buyers and records unpaid totals against them.
type Companies interface {
	Get(ctx context.Context, id string) (gst.Company, error)
	AddToBalance(ctx context.Context, id string, amount decimal.Decimal) (gst.Company, error)
}

// RenderQueue schedules document pre-rendering for a finalized invoice.
type RenderQueue interface {
	EnqueueRender(ctx context.Context, invoiceID string) error
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Catalog   Catalog
	Companies Companies
	Drafts    DraftStore
	Primary   Store
	Fallback  *MemoryStore
	Guard     resilience.Guard
	Documents *cache.Cache
	Locker    lock.Runner
	LockTTL   time.Duration
	Queue     RenderQueue
	Events    events.Emitter
	Logger    zerolog.Logger
	Validate  *validator.Validate

	Seller           gst.Seller
	Bank             gst.BankDetails
	Policy           Policy
	Numberer         Numberer
	DefaultTerms     PaymentTerms
	DefaultTransport TransportMode
	Now              func() time.Time
}

// Service drafts invoices, finalizes them and serves their documents.
type Service struct {
	catalog   Catalog
	companies Companies
	drafts    DraftStore
	primary   Store
	fallback  *MemoryStore
	guard     resilience.Guard
	documents *cache.Cache
	locker    lock.Runner
	lockTTL   time.Duration
	queue     RenderQueue
	events    events.Emitter
	logger    zerolog.Logger
	validate  *validator.Validate

	seller           gst.Seller
	bank             gst.BankDetails
	policy           Policy
	numberer         Numberer
	defaultTerms     PaymentTerms
	defaultTransport TransportMode
	Now              func() time.Time
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("invoice: catalog is required")
	}
	if cfg.Companies == nil {
		return nil, errors.New("invoice: companies are required")
	}
	drafts := cfg.Drafts
	if drafts == nil {
		drafts = NewMemoryDraftStore()
	}
	fallback := cfg.Fallback
	if fallback == nil {
		fallback = NewMemoryStore()
	}
	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	validate := cfg.Validate
	if validate == nil {
		validate = common.NewValidator()
	}
	guard := cfg.Guard
	guard.Expected = append(append([]error(nil), guard.Expected...), ErrInvoiceNotFound, ErrDuplicateNumber)
	return &Service{
		catalog:          cfg.Catalog,
		companies:        cfg.Companies,
		drafts:           drafts,
		primary:          cfg.Primary,
		fallback:         fallback,
		guard:            guard,
		documents:        cfg.Documents,
		locker:           locker,
		lockTTL:          lockTTL,
		queue:            cfg.Queue,
		events:           cfg.Events,
		logger:           cfg.Logger,
		validate:         validate,
		seller:           cfg.Seller,
		bank:             cfg.Bank,
		policy:           cfg.Policy,
		numberer:         cfg.Numberer,
		defaultTerms:     cfg.DefaultTerms,
		defaultTransport: cfg.DefaultTransport,
		Now:              cfg.Now,
	}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) defaultOptions() Options {
	return DefaultOptions(s.defaultTerms, s.defaultTransport, s.now())
}

// CreateDraft starts an empty draft with default options.
func (s *Service) CreateDraft(ctx context.Context) (Draft, error) {
	now := s.now()
	d := Draft{
		ID:        uuid.NewString(),
		Lines:     []gst.LineItem{},
		Options:   s.defaultOptions(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.drafts.Save(ctx, d); err != nil {
		return Draft{}, fmt.Errorf("invoice: save draft: %w", err)
	}
	return d, nil
}

// GetDraft loads a draft.
func (s *Service) GetDraft(ctx context.Context, id string) (Draft, error) {
	return s.drafts.Get(ctx, strings.TrimSpace(id))
}

// DeleteDraft discards a draft.
func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if _, err := s.drafts.Get(ctx, id); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, id)
}

// AddItem places an inventory item on the draft.
func (s *Service) AddItem(ctx context.Context, draftID, itemID string, qty int) (Draft, error) {
	item, err := s.catalog.Get(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return Draft{}, err
	}
	return s.mutate(ctx, draftID, func(d *Draft) error {
		_, err := d.AddItem(item, qty, s.policy)
		return err
	})
}

// LineUpdate changes a line. Nil fields are left as they are.
type LineUpdate struct {
	Quantity *int             `json:"quantity"`
	Discount *decimal.Decimal `json:"discount"`
	Rate     *decimal.Decimal `json:"rate"`
}

// UpdateLine applies the non-nil fields of u to a line.
func (s *Service) UpdateLine(ctx context.Context, draftID, lineID string, u LineUpdate) (Draft, error) {
	return s.mutate(ctx, draftID, func(d *Draft) error {
		if _, err := d.line(lineID); err != nil {
			return err
		}
		if u.Quantity != nil {
			if _, err := d.UpdateQuantity(lineID, *u.Quantity, s.policy); err != nil {
				return err
			}
		}
		if u.Discount != nil {
			if _, err := d.UpdateDiscount(lineID, *u.Discount); err != nil {
				return err
			}
		}
		if u.Rate != nil {
			if _, err := d.UpdateRate(lineID, *u.Rate); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveItem drops a line from the draft.
func (s *Service) RemoveItem(ctx context.Context, draftID, lineID string) (Draft, error) {
	return s.mutate(ctx, draftID, func(d *Draft) error {
		return d.RemoveItem(lineID)
	})
}

// Clear resets the draft's lines, buyer and options.
func (s *Service) Clear(ctx context.Context, draftID string) (Draft, error) {
	defaults := s.defaultOptions()
	return s.mutate(ctx, draftID, func(d *Draft) error {
		d.Clear(defaults)
		return nil
	})
}

// SetCompany attaches the buyer to the draft. An empty id detaches it.
func (s *Service) SetCompany(ctx context.Context, draftID, companyID string) (Draft, error) {
	companyID = strings.TrimSpace(companyID)
	var company *gst.Company
	if companyID != "" {
		c, err := s.companies.Get(ctx, companyID)
		if err != nil {
			return Draft{}, err
		}
		company = &c
	}
	return s.mutate(ctx, draftID, func(d *Draft) error {
		d.SetCompany(company)
		return nil
	})
}

// SetOptions validates and replaces the draft's options.
func (s *Service) SetOptions(ctx context.Context, draftID string, opts Options) (Draft, error) {
	normalized, err := opts.Normalize(s.now())
	if err != nil {
		return Draft{}, err
	}
	return s.mutate(ctx, draftID, func(d *Draft) error {
		d.SetOptions(normalized)
		return nil
	})
}

// SummaryView is a summary together with its display strings.
type SummaryView struct {
	gst.Summary
	Display Display `json:"display"`
}

// Display holds summary figures rounded half-up to two decimals.
type Display struct {
	Subtotal        string           `json:"subtotal"`
	TotalDiscount   string           `json:"totalDiscount"`
	TotalGST        string           `json:"totalGst"`
	GrandTotal      string           `json:"grandTotal"`
	PreviousBalance string           `json:"previousBalance"`
	TotalPayable    string           `json:"totalPayable"`
	Tax             []render.TaxLine `json:"tax"`
}

// NewSummaryView adds display strings to summary.
func NewSummaryView(summary gst.Summary) SummaryView {
	return SummaryView{
		Summary: summary,
		Display: Display{
			Subtotal:        gst.FormatAmount(summary.Totals.Subtotal),
			TotalDiscount:   gst.FormatAmount(summary.Totals.TotalDiscount),
			TotalGST:        gst.FormatAmount(summary.Totals.TotalGST),
			GrandTotal:      gst.FormatAmount(summary.Totals.GrandTotal),
			PreviousBalance: gst.FormatAmount(summary.PreviousBalance),
			TotalPayable:    gst.FormatAmount(summary.TotalPayable),
			Tax:             render.TaxLines(summary),
		},
	}
}

// Summary computes the figures of a draft against the configured seller.
func (s *Service) Summary(ctx context.Context, draftID string) (SummaryView, error) {
	d, err := s.GetDraft(ctx, draftID)
	if err != nil {
		return SummaryView{}, err
	}
	return NewSummaryView(gst.Summarize(d.Lines, d.Company, s.seller)), nil
}

// QuoteLine is an ad-hoc line priced by Quote.
type QuoteLine struct {
	Name     string          `json:"name"`
	HSN      string          `json:"hsn"`
	Unit     string          `json:"unit"`
	Rate     decimal.Decimal `json:"rate" validate:"gte=0"`
	GSTRate  decimal.Decimal `json:"gstRate" validate:"gte=0,lte=100"`
	Quantity int             `json:"quantity" validate:"gte=1"`
	Discount decimal.Decimal `json:"discount"`
}

// QuoteInput is the payload accepted by Quote. StateCode and PendingAmount
// describe an optional buyer.
type QuoteInput struct {
	Lines         []QuoteLine     `json:"lines" validate:"dive"`
	StateCode     string          `json:"stateCode" validate:"omitempty,statecode"`
	PendingAmount decimal.Decimal `json:"pendingAmount" validate:"gte=0"`
}

// Quote prices lines without a draft.
func (s *Service) Quote(input QuoteInput) (SummaryView, error) {
	input.StateCode = strings.TrimSpace(input.StateCode)
	if err := common.ValidateStruct(s.validate, input); err != nil {
		return SummaryView{}, err
	}
	lines := make([]gst.LineItem, 0, len(input.Lines))
	for i, l := range input.Lines {
		lines = append(lines, gst.LineItem{
			ID: fmt.Sprintf("q%d", i+1),
			Item: gst.InventoryItem{
				Name:    l.Name,
				HSN:     l.HSN,
				Unit:    l.Unit,
				Rate:    l.Rate,
				GSTRate: l.GSTRate,
			},
			Quantity: l.Quantity,
			Discount: decimal.Min(decimal.Max(l.Discount, decimal.Zero), hundred),
		})
	}
	var buyer *gst.Company
	if input.StateCode != "" || !input.PendingAmount.IsZero() {
		buyer = &gst.Company{StateCode: input.StateCode, PendingAmount: input.PendingAmount}
	}
	return NewSummaryView(gst.Summarize(lines, buyer, s.seller)), nil
}

// Finalize turns a draft into an invoice. An unpaid invoice adds its grand
// total to the buyer's pending balance; the invoice shows the balance from
// before that update. The draft is deleted afterwards.
func (s *Service) Finalize(ctx context.Context, draftID string, paid bool) (Invoice, error) {
	draftID = strings.TrimSpace(draftID)
	var inv Invoice
	err := s.locker.WithLock(ctx, lock.DraftKey(draftID), s.lockTTL, func(ctx context.Context) error {
		d, err := s.drafts.Get(ctx, draftID)
		if err != nil {
			return err
		}
		if err := d.Ready(); err != nil {
			return err
		}

		grandTotal := gst.Aggregate(d.Lines).GrandTotal
		buyer, err := s.settle(ctx, d.Company.ID, grandTotal, paid)
		if err != nil {
			return err
		}

		issued := s.now()
		inv = Invoice{
			ID:           uuid.NewString(),
			IssuedAt:     issued,
			Seller:       s.seller,
			Bank:         s.bank,
			Company:      buyer,
			Lines:        append([]gst.LineItem(nil), d.Lines...),
			Options:      d.Options,
			Paid:         paid,
			GrandTotal:   grandTotal,
			TotalPayable: gst.TotalPayable(grandTotal, buyer.PendingAmount),
		}
		if err := s.persist(ctx, &inv); err != nil {
			if !paid {
				s.unsettle(ctx, buyer.ID, grandTotal)
			}
			return err
		}
		if err := s.drafts.Delete(ctx, draftID); err != nil {
			s.logger.Warn().Err(err).Str("draft_id", draftID).Msg("draft_delete_failed")
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	obs.RecordInvoiceFinalized(paid)
	s.logger.Info().
		Str("invoice_id", inv.ID).
		Str("number", inv.Number).
		Str("company_id", inv.Company.ID).
		Bool("paid", paid).
		Str("grand_total", inv.GrandTotal.String()).
		Msg("invoice_finalized")
	s.emit(ctx, inv)
	if s.queue != nil {
		if err := s.queue.EnqueueRender(ctx, inv.ID); err != nil {
			s.logger.Warn().Err(err).Str("invoice_id", inv.ID).Msg("render_enqueue_failed")
		}
	}
	return inv, nil
}

// settle returns the buyer as it stood before this invoice. Unpaid totals
// are added to the pending balance.
func (s *Service) settle(ctx context.Context, companyID string, grandTotal decimal.Decimal, paid bool) (gst.Company, error) {
	if paid {
		return s.companies.Get(ctx, companyID)
	}
	updated, err := s.companies.AddToBalance(ctx, companyID, grandTotal)
	if err != nil {
		return gst.Company{}, err
	}
	before := updated
	before.PendingAmount = updated.PendingAmount.Sub(grandTotal)
	return before, nil
}

// unsettle reverses the balance added by settle when the invoice could not
// be stored.
func (s *Service) unsettle(ctx context.Context, companyID string, grandTotal decimal.Decimal) {
	if _, err := s.companies.AddToBalance(ctx, companyID, grandTotal.Neg()); err != nil {
		s.logger.Error().Err(err).
			Str("company_id", companyID).
			Str("amount", grandTotal.String()).
			Msg("balance_reversal_failed")
	}
}

// persist numbers and stores inv, drawing a new number on collisions.
func (s *Service) persist(ctx context.Context, inv *Invoice) error {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		inv.Number = s.numberer.Next(inv.IssuedAt)
		err := s.create(ctx, *inv)
		if errors.Is(err, ErrDuplicateNumber) {
			s.logger.Debug().Str("number", inv.Number).Msg("invoice_number_collision")
			continue
		}
		return err
	}
	return fmt.Errorf("invoice: no free number after %d attempts: %w", numberAttempts, ErrDuplicateNumber)
}

func (s *Service) create(ctx context.Context, inv Invoice) error {
	if s.primary != nil {
		err := s.guard.Do(ctx, func(ctx context.Context) error {
			return s.primary.Create(ctx, inv)
		})
		if err == nil || errors.Is(err, ErrDuplicateNumber) {
			return err
		}
		s.recordFallback("create", err)
	}
	return s.fallback.Create(ctx, inv)
}

// ListInvoices returns finalized invoices, newest first.
func (s *Service) ListInvoices(ctx context.Context) ([]Invoice, error) {
	local, err := s.fallback.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.primary == nil {
		return local, nil
	}
	var remote []Invoice
	err = s.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		remote, err = s.primary.List(ctx)
		return err
	})
	if err != nil {
		s.recordFallback("list", err)
		return local, nil
	}
	seen := make(map[string]struct{}, len(remote))
	for _, inv := range remote {
		seen[inv.ID] = struct{}{}
	}
	for _, inv := range local {
		if _, ok := seen[inv.ID]; !ok {
			remote = append(remote, inv)
		}
	}
	sortNewestFirst(remote)
	return remote, nil
}

// GetInvoice returns a finalized invoice.
func (s *Service) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Invoice{}, ErrInvoiceNotFound
	}
	if s.primary != nil {
		var inv Invoice
		err := s.guard.Do(ctx, func(ctx context.Context) error {
			var err error
			inv, err = s.primary.Get(ctx, id)
			return err
		})
		switch {
		case err == nil:
			return inv, nil
		case errors.Is(err, ErrInvoiceNotFound):
		default:
			s.recordFallback("get", err)
		}
	}
	return s.fallback.Get(ctx, id)
}

// Document returns the invoice rendered in format along with its download
// name. Rendered documents are cached.
func (s *Service) Document(ctx context.Context, id, format string) ([]byte, string, error) {
	if format != FormatPDF && format != FormatXLSX {
		return nil, "", common.ValidationError("unsupported format", map[string]string{"format": "must be pdf or xlsx"})
	}
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, "", err
	}
	name := render.FileName(inv.Number, format)
	key := cache.KeyInvoiceDocument(inv.ID, format)
	if data, ok, err := s.documents.GetBytes(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("document_cache_read_failed")
	} else if ok {
		return data, name, nil
	}
	data, err := s.render(inv, format)
	if err != nil {
		return nil, "", err
	}
	if err := s.documents.SetBytes(ctx, key, data); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("document_cache_write_failed")
	}
	return data, name, nil
}

// PrerenderPDF renders the invoice PDF into the document cache.
func (s *Service) PrerenderPDF(ctx context.Context, id string) error {
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	data, err := s.render(inv, FormatPDF)
	if err != nil {
		return err
	}
	return s.documents.SetBytes(ctx, cache.KeyInvoiceDocument(inv.ID, FormatPDF), data)
}

func (s *Service) render(inv Invoice, format string) ([]byte, error) {
	doc := render.Build(DocumentInput(inv))
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatXLSX:
		data, err = render.XLSX(doc)
	default:
		data, err = render.PDF(doc)
	}
	obs.RecordDocumentRendered(format, err)
	return data, err
}

// DocumentInput maps an invoice onto the renderer's input.
func DocumentInput(inv Invoice) render.Input {
	return render.Input{
		Number:        inv.Number,
		Date:          inv.IssuedAt,
		Seller:        inv.Seller,
		Bank:          inv.Bank,
		Company:       inv.Company,
		Lines:         inv.Lines,
		PaymentTerms:  inv.Options.PaymentTerms.Label(),
		DueDate:       inv.Options.DueDate,
		Notes:         inv.Options.Notes,
		TransportMode: inv.Options.TransportMode.Label(),
		VehicleNo:     inv.Options.VehicleNo,
	}
}

// mutate runs fn against the stored draft under the draft lock.
func (s *Service) mutate(ctx context.Context, draftID string, fn func(*Draft) error) (Draft, error) {
	draftID = strings.TrimSpace(draftID)
	var out Draft
	err := s.locker.WithLock(ctx, lock.DraftKey(draftID), s.lockTTL, func(ctx context.Context) error {
		d, err := s.drafts.Get(ctx, draftID)
		if err != nil {
			return err
		}
		if err := fn(&d); err != nil {
			return err
		}
		if d.Lines == nil {
			d.Lines = []gst.LineItem{}
		}
		d.UpdatedAt = s.now()
		if err := s.drafts.Save(ctx, d); err != nil {
			return fmt.Errorf("invoice: save draft: %w", err)
		}
		out = d
		return nil
	})
	return out, err
}

func (s *Service) emit(ctx context.Context, inv Invoice) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"invoiceId":    inv.ID,
		"number":       inv.Number,
		"companyId":    inv.Company.ID,
		"paid":         inv.Paid,
		"grandTotal":   inv.GrandTotal,
		"totalPayable": inv.TotalPayable,
	}
	if _, err := s.events.Emit(ctx, events.TopicInvoiceFinalized, inv.ID, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", events.TopicInvoiceFinalized).Msg("invoice_event_failed")
	}
}

func (s *Service) recordFallback(op string, err error) {
	obs.RecordStoreFallback("invoice", op)
	s.logger.Warn().Err(err).
		Str("store", "invoice").
		Str("op", op).
		Bool("circuit_open", errors.Is(err, resilience.ErrOpenCircuit)).
		Msg("store_fallback")
}
