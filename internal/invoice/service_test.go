package invoice_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gst-invoice/internal/cache"
	"github.com/noah-isme/gst-invoice/internal/company"
	"github.com/noah-isme/gst-invoice/internal/events"
	"github.com/noah-isme/gst-invoice/internal/inventory"
	"github.com/noah-isme/gst-invoice/internal/invoice"
	"github.com/noah-isme/gst-invoice/internal/lock"
	"github.com/noah-isme/gst-invoice/internal/seed"
)

type fixture struct {
	svc       *invoice.Service
	companies *company.Service
	queue     *recordingQueue
	events    *captureEmitter
}

type options struct {
	primary   invoice.Store
	drafts    invoice.DraftStore
	documents *cache.Cache
	locker    lock.Runner
	numberer  invoice.Numberer
}

func newFixture(t *testing.T, o options) fixture {
	t.Helper()
	items, err := inventory.NewService(inventory.ServiceConfig{
		Fallback: inventory.NewMemoryStore(seed.Items()),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	companies, err := company.NewService(company.ServiceConfig{
		Fallback: company.NewMemoryStore(seed.Companies()),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	queue := &recordingQueue{}
	emitter := &captureEmitter{}
	svc, err := invoice.NewService(invoice.ServiceConfig{
		Catalog:          items,
		Companies:        companies,
		Drafts:           o.drafts,
		Primary:          o.primary,
		Documents:        o.documents,
		Locker:           o.locker,
		Queue:            queue,
		Events:           emitter,
		Logger:           zerolog.Nop(),
		Seller:           seed.DefaultSeller(),
		Bank:             seed.DefaultBank(),
		Numberer:         o.numberer,
		DefaultTerms:     invoice.Terms30Days,
		DefaultTransport: invoice.TransportRoad,
		Now:              func() time.Time { return issueDay },
	})
	require.NoError(t, err)
	return fixture{svc: svc, companies: companies, queue: queue, events: emitter}
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) EnqueueRender(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

type captureEmitter struct {
	mu     sync.Mutex
	topics []string
}

func (c *captureEmitter) Emit(_ context.Context, topic, aggregateID string, _ any) (events.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	return events.Event{Topic: topic, AggregateID: aggregateID}, nil
}

// steelDraft builds the draft: 2 × steel bars at 10% discount for Sharma
// Constructions, a Maharashtra buyer with 1,25,000 pending.
func steelDraft(t *testing.T, svc *invoice.Service) invoice.Draft {
	t.Helper()
	ctx := context.Background()
	d, err := svc.CreateDraft(ctx)
	require.NoError(t, err)
	d, err = svc.AddItem(ctx, d.ID, "1", 2)
	require.NoError(t, err)
	discount := dec("10")
	d, err = svc.UpdateLine(ctx, d.ID, d.Lines[0].ID, invoice.LineUpdate{Discount: &discount})
	require.NoError(t, err)
	d, err = svc.SetCompany(ctx, d.ID, "1")
	require.NoError(t, err)
	return d
}

func TestDraftDefaults(t *testing.T) {
	f := newFixture(t, options{})
	d, err := f.svc.CreateDraft(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)
	require.Empty(t, d.Lines)
	require.Nil(t, d.Company)
	require.Equal(t, invoice.Terms30Days, d.Options.PaymentTerms)
	require.Equal(t, "2025-02-19", d.Options.DueDate)
	require.Equal(t, invoice.TransportRoad, d.Options.TransportMode)
}

func TestSummaryOfDraft(t *testing.T) {
	f := newFixture(t, options{})
	d := steelDraft(t, f.svc)

	view, err := f.svc.Summary(context.Background(), d.ID)
	require.NoError(t, err)
	require.True(t, view.SameState)
	requireDecEqual(t, "11682", view.Totals.GrandTotal)
	requireDecEqual(t, "136682", view.TotalPayable)
	require.Equal(t, "9,900.00", view.Display.Subtotal)
	require.Equal(t, "1,36,682.00", view.Display.TotalPayable)
	require.Len(t, view.Display.Tax, 2)
	require.Equal(t, "CGST @ 9%", view.Display.Tax[0].Label)
}

func TestAddItemUnknownItem(t *testing.T) {
	f := newFixture(t, options{})
	d, err := f.svc.CreateDraft(context.Background())
	require.NoError(t, err)
	_, err = f.svc.AddItem(context.Background(), d.ID, "missing", 1)
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestAddItemMaxStock(t *testing.T) {
	f := newFixture(t, options{})
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, d.ID, "9", 30)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, d.ID, "9", 1)
	require.ErrorIs(t, err, invoice.ErrMaxStock)

	stored, err := f.svc.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, 30, stored.Lines[0].Quantity)
}

func TestFinalizePreconditions(t *testing.T) {
	f := newFixture(t, options{})
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, d.ID, false)
	require.ErrorIs(t, err, invoice.ErrNoCompany)

	_, err = f.svc.SetCompany(ctx, d.ID, "2")
	require.NoError(t, err)
	_, err = f.svc.Finalize(ctx, d.ID, false)
	require.ErrorIs(t, err, invoice.ErrNoItems)

	_, err = f.svc.Finalize(ctx, "missing", false)
	require.ErrorIs(t, err, invoice.ErrDraftNotFound)
}

func TestFinalizeUnpaidAddsToBalance(t *testing.T) {
	f := newFixture(t, options{numberer: invoice.Numberer{Rand: func(int) int { return 7 }}})
	ctx := context.Background()
	d := steelDraft(t, f.svc)

	inv, err := f.svc.Finalize(ctx, d.ID, false)
	require.NoError(t, err)
	require.Equal(t, "INV/2501/0007", inv.Number)
	require.False(t, inv.Paid)
	requireDecEqual(t, "11682", inv.GrandTotal)
	requireDecEqual(t, "125000", inv.Company.PendingAmount)
	requireDecEqual(t, "136682", inv.TotalPayable)
	requireDecEqual(t, "125000", inv.Summary().PreviousBalance)

	buyer, err := f.companies.Get(ctx, "1")
	require.NoError(t, err)
	requireDecEqual(t, "136682", buyer.PendingAmount)
	require.NotNil(t, buyer.LastTransaction)

	_, err = f.svc.GetDraft(ctx, d.ID)
	require.ErrorIs(t, err, invoice.ErrDraftNotFound)

	stored, err := f.svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, inv.Number, stored.Number)
	require.Equal(t, []string{inv.ID}, f.queue.ids)
	require.Equal(t, []string{events.TopicInvoiceFinalized}, f.events.topics)
}

func TestFinalizePaidLeavesBalance(t *testing.T) {
	f := newFixture(t, options{})
	ctx := context.Background()
	d := steelDraft(t, f.svc)

	inv, err := f.svc.Finalize(ctx, d.ID, true)
	require.NoError(t, err)
	require.True(t, inv.Paid)
	requireDecEqual(t, "136682", inv.TotalPayable)

	buyer, err := f.companies.Get(ctx, "1")
	require.NoError(t, err)
	requireDecEqual(t, "125000", buyer.PendingAmount)
}

type collidingStore struct {
	*invoice.MemoryStore
	mu         sync.Mutex
	collisions int
}

func (s *collidingStore) Create(ctx context.Context, inv invoice.Invoice) error {
	s.mu.Lock()
	if s.collisions > 0 {
		s.collisions--
		s.mu.Unlock()
		return invoice.ErrDuplicateNumber
	}
	s.mu.Unlock()
	return s.MemoryStore.Create(ctx, inv)
}

func TestFinalizeRetriesNumberCollision(t *testing.T) {
	seq := []int{1, 1, 2}
	var mu sync.Mutex
	numberer := invoice.Numberer{Rand: func(int) int {
		mu.Lock()
		defer mu.Unlock()
		n := seq[0]
		seq = seq[1:]
		return n
	}}
	store := &collidingStore{MemoryStore: invoice.NewMemoryStore(), collisions: 2}
	f := newFixture(t, options{primary: store, numberer: numberer})

	inv, err := f.svc.Finalize(context.Background(), steelDraft(t, f.svc).ID, true)
	require.NoError(t, err)
	require.Equal(t, "INV/2501/0002", inv.Number)

	stored, err := store.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, inv.Number, stored.Number)
}

func TestFinalizeFailureRestoresBalance(t *testing.T) {
	store := &collidingStore{MemoryStore: invoice.NewMemoryStore()}
	f := newFixture(t, options{primary: store, numberer: invoice.Numberer{Rand: func(int) int { return 7 }}})
	ctx := context.Background()

	_, err := f.svc.Finalize(ctx, steelDraft(t, f.svc).ID, false)
	require.NoError(t, err)
	buyer, err := f.companies.Get(ctx, "1")
	require.NoError(t, err)
	requireDecEqual(t, "136682", buyer.PendingAmount)

	store.collisions = 10
	d := steelDraft(t, f.svc)
	_, err = f.svc.Finalize(ctx, d.ID, false)
	require.ErrorIs(t, err, invoice.ErrDuplicateNumber)

	buyer, err = f.companies.Get(ctx, "1")
	require.NoError(t, err)
	requireDecEqual(t, "136682", buyer.PendingAmount)

	_, err = f.svc.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	list, err := f.svc.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

type brokenStore struct{}

func (brokenStore) Create(context.Context, invoice.Invoice) error { return errors.New("down") }
func (brokenStore) Get(context.Context, string) (invoice.Invoice, error) {
	return invoice.Invoice{}, errors.New("down")
}
func (brokenStore) List(context.Context) ([]invoice.Invoice, error) { return nil, errors.New("down") }

func TestFinalizeFallsBackWhenStoreFails(t *testing.T) {
	f := newFixture(t, options{primary: brokenStore{}})
	ctx := context.Background()

	inv, err := f.svc.Finalize(ctx, steelDraft(t, f.svc).ID, true)
	require.NoError(t, err)

	got, err := f.svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, inv.Number, got.Number)

	list, err := f.svc.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.GetInvoice(ctx, "missing")
	require.ErrorIs(t, err, invoice.ErrInvoiceNotFound)
}

func TestListInvoicesNewestFirst(t *testing.T) {
	f := newFixture(t, options{})
	ctx := context.Background()
	now := issueDay
	f.svc.Now = func() time.Time { return now }

	first, err := f.svc.Finalize(ctx, steelDraft(t, f.svc).ID, true)
	require.NoError(t, err)
	now = now.Add(time.Hour)
	second, err := f.svc.Finalize(ctx, steelDraft(t, f.svc).ID, true)
	require.NoError(t, err)

	list, err := f.svc.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}

func TestQuoteWithoutBuyerIsInterState(t *testing.T) {
	f := newFixture(t, options{})
	view, err := f.svc.Quote(invoice.QuoteInput{Lines: []invoice.QuoteLine{
		{Name: "Cement", Rate: dec("380"), GSTRate: dec("28"), Quantity: 10, Discount: dec("120")},
		{Name: "Bricks", Rate: dec("8"), GSTRate: dec("5"), Quantity: 1000},
	}})
	require.NoError(t, err)
	require.False(t, view.SameState)
	requireDecEqual(t, "100", view.Lines[0].LineItem.Discount)
	requireDecEqual(t, "3800", view.Lines[0].Discount)
	requireDecEqual(t, "8000", view.Totals.Subtotal)
	requireDecEqual(t, "400", view.Totals.TotalGST)
	require.Equal(t, "IGST @ 5%", view.Display.Tax[0].Label)

	sameState, err := f.svc.Quote(invoice.QuoteInput{
		Lines:         []invoice.QuoteLine{{Name: "Cement", Rate: dec("380"), GSTRate: dec("28"), Quantity: 1}},
		StateCode:     "27",
		PendingAmount: dec("100"),
	})
	require.NoError(t, err)
	require.True(t, sameState.SameState)
	requireDecEqual(t, "586.4", sameState.TotalPayable)
}

func TestQuoteValidatesLines(t *testing.T) {
	f := newFixture(t, options{})
	_, err := f.svc.Quote(invoice.QuoteInput{Lines: []invoice.QuoteLine{{Name: "x", Rate: dec("-1"), GSTRate: dec("18"), Quantity: 0}}})
	require.Error(t, err)

	_, err = f.svc.Quote(invoice.QuoteInput{StateCode: "45"})
	require.Error(t, err)
}

func TestDocumentIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, options{
		documents: cache.New(client, time.Hour),
		drafts:    invoice.NewDraftStore(cache.New(client, time.Hour)),
		locker:    lock.New(client, 5*time.Millisecond),
		numberer:  invoice.Numberer{Rand: func(int) int { return 42 }},
	})
	ctx := context.Background()
	inv, err := f.svc.Finalize(ctx, steelDraft(t, f.svc).ID, false)
	require.NoError(t, err)

	data, name, err := f.svc.Document(ctx, inv.ID, invoice.FormatPDF)
	require.NoError(t, err)
	require.Equal(t, "Invoice_INV_2501_0042.pdf", name)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	require.True(t, mr.Exists(cache.KeyInvoiceDocument(inv.ID, invoice.FormatPDF)))

	require.NoError(t, mr.Set(cache.KeyInvoiceDocument(inv.ID, invoice.FormatPDF), "cached"))
	data, _, err = f.svc.Document(ctx, inv.ID, invoice.FormatPDF)
	require.NoError(t, err)
	require.Equal(t, "cached", string(data))

	xlsx, name, err := f.svc.Document(ctx, inv.ID, invoice.FormatXLSX)
	require.NoError(t, err)
	require.Equal(t, "Invoice_INV_2501_0042.xlsx", name)
	require.True(t, bytes.HasPrefix(xlsx, []byte("PK")))

	_, _, err = f.svc.Document(ctx, inv.ID, "docx")
	require.Error(t, err)
}

func TestPrerenderPDF(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, options{documents: cache.New(client, time.Hour)})
	ctx := context.Background()
	inv, err := f.svc.Finalize(ctx, steelDraft(t, f.svc).ID, true)
	require.NoError(t, err)

	require.NoError(t, f.svc.PrerenderPDF(ctx, inv.ID))
	require.True(t, mr.Exists(cache.KeyInvoiceDocument(inv.ID, invoice.FormatPDF)))
	require.ErrorIs(t, f.svc.PrerenderPDF(ctx, "missing"), invoice.ErrInvoiceNotFound)
}

func TestRedisDraftStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := invoice.NewDraftStore(cache.New(client, time.Minute))
	require.IsType(t, invoice.RedisDraftStore{}, store)
	f := newFixture(t, options{drafts: store, locker: lock.New(client, 5*time.Millisecond)})

	d := steelDraft(t, f.svc)
	require.True(t, mr.Exists(cache.KeyDraft(d.ID)))
	require.Greater(t, mr.TTL(cache.KeyDraft(d.ID)), time.Duration(0))

	loaded, err := f.svc.GetDraft(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, d.Lines[0].ID, loaded.Lines[0].ID)
	requireDecEqual(t, "10", loaded.Lines[0].Discount)

	mr.FastForward(2 * time.Minute)
	_, err = f.svc.GetDraft(context.Background(), d.ID)
	require.ErrorIs(t, err, invoice.ErrDraftNotFound)
}

func TestConcurrentAddsAreSerialised(t *testing.T) {
	f := newFixture(t, options{})
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, d.ID, "3", 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.svc.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	require.Equal(t, 20, stored.Lines[0].Quantity)
}
