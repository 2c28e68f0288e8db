// Package jobs runs document rendering outside the request path.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gst-invoice/internal/invoice"
)

// Task types and queues.
const (
	TypeInvoiceRender = "invoice:render"
	QueueDocuments    = "documents"
	DefaultMaxRetry   = 5
)

// RenderPayload identifies the invoice to render.
type RenderPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// NewRenderTask builds an invoice:render task. The task id is derived from
// the invoice so an invoice is queued at most once at a time.
func NewRenderTask(invoiceID string, maxRetry int) (*asynq.Task, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, errors.New("jobs: invoice id is required")
	}
	payload, err := json.Marshal(RenderPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	if maxRetry <= 0 {
		maxRetry = DefaultMaxRetry
	}
	return asynq.NewTask(TypeInvoiceRender, payload,
		asynq.Queue(QueueDocuments),
		asynq.MaxRetry(maxRetry),
		asynq.TaskID(TypeInvoiceRender+":"+invoiceID),
		asynq.Timeout(time.Minute),
	), nil
}

// Enqueuer schedules render tasks on asynq.
type Enqueuer struct {
	Client   *asynq.Client
	MaxRetry int
	Logger   zerolog.Logger
}

// EnqueueRender implements invoice.RenderQueue.
func (e Enqueuer) EnqueueRender(ctx context.Context, invoiceID string) error {
	if e.Client == nil {
		return errors.New("jobs: asynq client not configured")
	}
	task, err := NewRenderTask(invoiceID, e.MaxRetry)
	if err != nil {
		return err
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jobs: enqueue render: %w", err)
	}
	e.Logger.Debug().Str("invoice_id", invoiceID).Str("task_id", info.ID).Str("queue", info.Queue).Msg("render_enqueued")
	return nil
}

// Prerenderer renders an invoice PDF into the document cache.
type Prerenderer interface {
	PrerenderPDF(ctx context.Context, invoiceID string) error
}

// RenderHandler processes invoice:render tasks.
type RenderHandler struct {
	Renderer Prerenderer
	Logger   zerolog.Logger
}

// ProcessTask implements asynq.Handler. Malformed payloads and unknown
// invoices are not retried.
func (h RenderHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p RenderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || strings.TrimSpace(p.InvoiceID) == "" {
		return fmt.Errorf("jobs: invalid %s payload: %w", TypeInvoiceRender, asynq.SkipRetry)
	}
	start := time.Now()
	err := h.Renderer.PrerenderPDF(ctx, p.InvoiceID)
	switch {
	case errors.Is(err, invoice.ErrInvoiceNotFound):
		h.Logger.Warn().Str("invoice_id", p.InvoiceID).Msg("render_invoice_missing")
		return fmt.Errorf("jobs: invoice %s: %w", p.InvoiceID, asynq.SkipRetry)
	case err != nil:
		h.Logger.Error().Err(err).Str("invoice_id", p.InvoiceID).Msg("render_failed")
		return err
	}
	h.Logger.Info().
		Str("invoice_id", p.InvoiceID).
		Dur("duration", time.Since(start)).
		Msg("render_completed")
	return nil
}

// NewServeMux routes render tasks to h.
func NewServeMux(h RenderHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeInvoiceRender, h)
	return mux
}
