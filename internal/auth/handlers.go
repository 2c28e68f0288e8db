package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gst-invoice/internal/common"
)

// Handler exposes the operator token endpoint.
type Handler struct {
	Service *Service
	Logger  zerolog.Logger
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Routes mounts the auth endpoints under /auth.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/token", h.Token)
}

// Token handles POST /api/v1/auth/token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "authentication is disabled", nil)
		return
	}
	var req tokenRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid request payload", nil)
		return
	}
	token, err := h.Service.IssueToken(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.Logger.Warn().Str("ip", common.ClientIP(r)).Msg("operator_login_failed")
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": token})
}
