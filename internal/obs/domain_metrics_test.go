package obs_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gst-invoice/internal/common"
	"github.com/noah-isme/gst-invoice/internal/obs"
)

func TestDomainMetricsRecorders(t *testing.T) {
	obs.MustRegisterDomainMetrics("gst_invoice", prometheus.NewRegistry())

	obs.RecordInvoiceFinalized(false)
	obs.RecordInvoiceFinalized(false)
	obs.RecordStoreFallback("inventory", "list")
	obs.RecordDocumentRendered("pdf", nil)
	obs.RecordDocumentRendered("pdf", errors.New("boom"))
	obs.RecordDomainEvent("invoice.finalized")

	require.Equal(t, 2.0, testutil.ToFloat64(obs.InvoicesFinalizedTotal.WithLabelValues("false")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.StoreFallbackTotal.WithLabelValues("inventory", "list")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.DocumentsRenderedTotal.WithLabelValues("pdf", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.DocumentsRenderedTotal.WithLabelValues("pdf", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.DomainEventsTotal.WithLabelValues("invoice.finalized")))
}

func TestRequestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json")
	handler := middleware.RequestID(obs.RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", nil)
	req = req.WithContext(common.WithOperator(obs.WithRoutePattern(context.Background(), "/api/v1/quote"), "operator"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	require.Contains(t, out, `"message":"http_request"`)
	require.Contains(t, out, `"route":"/api/v1/quote"`)
	require.Contains(t, out, `"status":201`)
	require.Contains(t, out, `"user_id":"operator"`)
	require.Contains(t, out, `"request_id"`)
}
