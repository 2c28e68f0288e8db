package company

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/gst-invoice/internal/common"
)

// Handler exposes company endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Routes mounts the company endpoints. Create is wrapped by guard when set.
func (h *Handler) Routes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Get("/lookup/{gstin}", h.Lookup)
	r.Get("/{id}", h.Get)
	if guard != nil {
		r.With(guard).Post("/", h.Create)
		return
	}
	r.Post("/", h.Create)
}

// List handles GET /api/v1/companies?q=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	common.JSON(w, http.StatusOK, common.Paginate(companies, page, perPage))
}

// Get handles GET /api/v1/companies/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Lookup handles GET /api/v1/companies/lookup/{gstin}.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.LookupByGSTIN(r.Context(), chi.URLParam(r, "gstin"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Create handles POST /api/v1/companies.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := common.DecodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFound("company not found", err))
	case errors.Is(err, ErrGSTINRequired):
		common.WriteError(w, common.ValidationError("GST number is required", map[string]string{"gstNo": "is required"}))
	case errors.Is(err, ErrInvalidGSTIN):
		common.WriteError(w, common.NewAppError(common.CodeInvalidGSTIN, "Invalid GST number", http.StatusBadRequest, err))
	default:
		common.WriteError(w, err)
	}
}
