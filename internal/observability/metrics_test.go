package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/v1/invoices")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `facturado_http_requests_total{code="409",route="/api/v1/invoices"} 1`)
	require.Contains(t, body, `facturado_http_request_duration_seconds_bucket{route="/api/v1/invoices"`)
}

func TestLedgerMetrics(t *testing.T) {
	metrics := NewMetrics()
	ledger := metrics.Ledger()
	ledger.InvoiceCreated("CASH", decimal.RequireFromString("1500.50"))
	ledger.InvoiceCreated("CASH", decimal.RequireFromString("499.50"))
	ledger.StockRejected()
	ledger.PaymentRegistered("CARD", decimal.RequireFromString("250"))

	body := scrape(t, metrics)
	require.Contains(t, body, `facturado_invoices_total{method="CASH"} 2`)
	require.Contains(t, body, `facturado_invoiced_amount_total{method="CASH"} 2000`)
	require.Contains(t, body, `facturado_stock_rejections_total 1`)
	require.Contains(t, body, `facturado_payments_total{method="CARD"} 1`)

	var nilLedger *LedgerMetrics
	nilLedger.StockRejected()
}
