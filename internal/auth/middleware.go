package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/gst-invoice/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware guards routes behind an operator bearer token.
type Middleware struct {
	Service *Service
}

// RequireOperator rejects requests without a valid bearer token. A nil
// Service leaves the route open.
func (m Middleware) RequireOperator(next http.Handler) http.Handler {
	if m.Service == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			var appErr *common.AppError
			if !errors.Is(err, errNoToken) && errors.As(err, &appErr) {
				status := appErr.HTTPStatus
				if status == 0 {
					status = http.StatusUnauthorized
				}
				common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
				return
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="gst-invoice"`)
			common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	token := bearerToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	subject, err := m.Service.ParseAccessToken(token)
	if err != nil {
		return r.Context(), err
	}
	return common.WithOperator(r.Context(), subject), nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
