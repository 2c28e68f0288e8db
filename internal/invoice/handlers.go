package invoice

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/gst-invoice/internal/common"
	"github.com/noah-isme/gst-invoice/internal/company"
	"github.com/noah-isme/gst-invoice/internal/inventory"
)

var contentTypes = map[string]string{
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Handler exposes drafting, finalisation and invoice document endpoints.
type Handler struct {
	service  *Service
	basePath string
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	// BasePath prefixes document links in responses. Defaults to /api/v1.
	BasePath string
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	base := cfg.BasePath
	if base == "" {
		base = "/api/v1"
	}
	return &Handler{service: cfg.Service, basePath: base}
}

// Routes mounts the quote, draft and invoice endpoints. Mutating draft
// routes are wrapped by guard and finalize additionally by idem, when set.
func (h *Handler) Routes(r chi.Router, guard, idem func(http.Handler) http.Handler) {
	r.Post("/quote", h.Quote)

	r.Route("/drafts", func(r chi.Router) {
		r.Get("/{id}", h.GetDraft)
		r.Get("/{id}/summary", h.Summary)
		r.Group(func(r chi.Router) {
			if guard != nil {
				r.Use(guard)
			}
			r.Post("/", h.CreateDraft)
			r.Delete("/{id}", h.DeleteDraft)
			r.Post("/{id}/items", h.AddItem)
			r.Patch("/{id}/items/{lineID}", h.UpdateLine)
			r.Delete("/{id}/items/{lineID}", h.RemoveItem)
			r.Put("/{id}/company", h.SetCompany)
			r.Put("/{id}/options", h.SetOptions)
			r.Post("/{id}/clear", h.Clear)
			if idem != nil {
				r.With(idem).Post("/{id}/finalize", h.Finalize)
			} else {
				r.Post("/{id}/finalize", h.Finalize)
			}
		})
	})

	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.ListInvoices)
		r.Get("/{id}", h.GetInvoice)
		r.Get("/{id}/pdf", h.document(FormatPDF))
		r.Get("/{id}/xlsx", h.document(FormatXLSX))
	})
}

// Quote handles POST /api/v1/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var input QuoteInput
	if err := common.DecodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.service.Quote(input)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// CreateDraft handles POST /api/v1/drafts.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.CreateDraft(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": d})
}

// GetDraft handles GET /api/v1/drafts/{id}.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetDraft(r.Context(), chi.URLParam(r, "id"))
	h.respondDraft(w, d, err)
}

// DeleteDraft handles DELETE /api/v1/drafts/{id}.
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /api/v1/drafts/{id}/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type addItemRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// AddItem handles POST /api/v1/drafts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ItemID == "" {
		writeError(w, common.ValidationError("invalid input", map[string]string{"itemId": "is required"}))
		return
	}
	d, err := h.service.AddItem(r.Context(), chi.URLParam(r, "id"), req.ItemID, req.Quantity)
	h.respondDraft(w, d, err)
}

// UpdateLine handles PATCH /api/v1/drafts/{id}/items/{lineID}.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req LineUpdate
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.service.UpdateLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), req)
	h.respondDraft(w, d, err)
}

// RemoveItem handles DELETE /api/v1/drafts/{id}/items/{lineID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"))
	h.respondDraft(w, d, err)
}

type setCompanyRequest struct {
	CompanyID string `json:"companyId"`
}

// SetCompany handles PUT /api/v1/drafts/{id}/company.
func (h *Handler) SetCompany(w http.ResponseWriter, r *http.Request) {
	var req setCompanyRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.service.SetCompany(r.Context(), chi.URLParam(r, "id"), req.CompanyID)
	h.respondDraft(w, d, err)
}

// SetOptions handles PUT /api/v1/drafts/{id}/options.
func (h *Handler) SetOptions(w http.ResponseWriter, r *http.Request) {
	var req Options
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.service.SetOptions(r.Context(), chi.URLParam(r, "id"), req)
	h.respondDraft(w, d, err)
}

// Clear handles POST /api/v1/drafts/{id}/clear.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Clear(r.Context(), chi.URLParam(r, "id"))
	h.respondDraft(w, d, err)
}

type finalizeRequest struct {
	Paid bool `json:"paid"`
}

// Finalize handles POST /api/v1/drafts/{id}/finalize.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	inv, err := h.service.Finalize(r.Context(), chi.URLParam(r, "id"), req.Paid)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": inv, "links": h.links(inv)})
}

// ListInvoices handles GET /api/v1/invoices.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.ListInvoices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	common.JSON(w, http.StatusOK, common.Paginate(invoices, page, perPage))
}

// GetInvoice handles GET /api/v1/invoices/{id}.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":    inv,
		"summary": NewSummaryView(inv.Summary()),
		"links":   h.links(inv),
	})
}

func (h *Handler) document(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, name, err := h.service.Document(r.Context(), chi.URLParam(r, "id"), format)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (h *Handler) links(inv Invoice) map[string]string {
	base := h.basePath + "/invoices/" + inv.ID
	return map[string]string{
		"self": base,
		"pdf":  base + "/pdf",
		"xlsx": base + "/xlsx",
	}
}

func (h *Handler) respondDraft(w http.ResponseWriter, d Draft, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoCompany):
		common.WriteError(w, common.NewAppError(common.CodeNoCompany, "Select a customer before generating the invoice", http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrNoItems):
		common.WriteError(w, common.NewAppError(common.CodeNoItems, "Add at least one item before generating the invoice", http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrMaxStock):
		common.WriteError(w, common.NewAppError(common.CodeMaxStock, "Maximum stock reached", http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrDraftNotFound):
		common.WriteError(w, common.NotFound("draft not found", err))
	case errors.Is(err, ErrLineNotFound):
		common.WriteError(w, common.NotFound("line not found", err))
	case errors.Is(err, ErrInvoiceNotFound):
		common.WriteError(w, common.NotFound("invoice not found", err))
	case errors.Is(err, inventory.ErrNotFound):
		common.WriteError(w, common.NotFound("inventory item not found", err))
	case errors.Is(err, company.ErrNotFound):
		common.WriteError(w, common.NotFound("company not found", err))
	default:
		common.WriteError(w, err)
	}
}
