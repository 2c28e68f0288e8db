package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gst-invoice/internal/common"
)

var testParams = &argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestService(t *testing.T, now time.Time) *Service {
	t.Helper()
	hash, err := argon2id.CreateHash("s3cret", testParams)
	require.NoError(t, err)
	svc, err := NewService(Config{
		Secret:       "test-secret",
		Username:     "operator",
		PasswordHash: hash,
		TokenTTL:     time.Hour,
		ClockSkew:    time.Second,
	})
	require.NoError(t, err)
	svc.WithNow(func() time.Time { return now })
	return svc
}

func TestNewServiceRequiresSecretAndHash(t *testing.T) {
	_, err := NewService(Config{PasswordHash: "x"})
	require.Error(t, err)
	_, err = NewService(Config{Secret: "s"})
	require.Error(t, err)
	_, err = NewService(Config{Secret: "s", PasswordHash: "not-a-hash"})
	require.Error(t, err)
}

func TestIssueAndParseToken(t *testing.T) {
	now := time.Date(2025, time.January, 20, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)

	token, err := svc.IssueToken(t.Context(), "operator", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "Bearer", token.TokenType)
	require.Equal(t, now.Add(time.Hour), token.ExpiresAt)

	subject, err := svc.ParseAccessToken(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "operator", subject)

	svc.WithNow(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = svc.ParseAccessToken(token.AccessToken)
	require.Error(t, err)
}

func TestIssueTokenRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, time.Now())

	_, err := svc.IssueToken(t.Context(), "operator", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.IssueToken(t.Context(), "someone", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.IssueToken(t.Context(), "", "")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, now)

	tok, err := jwt.NewBuilder().
		Subject("operator").
		Issuer("someone-else").
		Audience([]string{"gst-invoice-api"}).
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("test-secret")))
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(string(signed))
	require.Error(t, err)

	tok, err = jwt.NewBuilder().
		Subject("operator").
		Issuer("gst-invoice").
		Audience([]string{"gst-invoice-api"}).
		Expiration(now.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err = jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("other-secret")))
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(string(signed))
	require.Error(t, err)

	_, err = svc.ParseAccessToken("garbage")
	require.Error(t, err)
}

func TestTokenValidatorRequiresSubject(t *testing.T) {
	now := time.Now()
	tok, err := jwt.NewBuilder().Issuer("gst-invoice").Expiration(now.Add(time.Minute)).Build()
	require.NoError(t, err)
	v := TokenValidator{Issuer: "gst-invoice", Algorithm: jwa.HS256}
	require.Error(t, v.Validate(tok, jwa.HS256, now))
	require.Error(t, v.Validate(tok, jwa.RS256, now))
}

func newAuthRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	h := &Handler{Service: svc, Logger: zerolog.Nop()}
	m := Middleware{Service: svc}
	r.Route("/api/v1", func(v chi.Router) {
		h.Routes(v)
		v.With(m.RequireOperator).Post("/drafts", func(w http.ResponseWriter, r *http.Request) {
			subject, _ := common.Operator(r.Context())
			common.JSON(w, http.StatusCreated, map[string]string{"operator": subject})
		})
	})
	return r
}

func TestTokenEndpointAndGuard(t *testing.T) {
	svc := newTestService(t, time.Now())
	r := newAuthRouter(svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/drafts", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{"username":"operator","password":"nope"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := svc.IssueToken(t.Context(), "operator", "s3cret")
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{"username":"operator","password":"s3cret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"token_type":"Bearer"`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"operator":"operator"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/v1/drafts", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireOperatorOpenWhenDisabled(t *testing.T) {
	r := newAuthRouter(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/drafts", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, bearerToken(req))
	req.Header.Set("Authorization", "bearer abc ")
	require.Equal(t, "abc", bearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	require.Empty(t, bearerToken(req))
}
