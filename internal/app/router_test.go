package app

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/observability"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/rbac"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

func testRouter(t *testing.T, health func(*http.Request) error) (http.Handler, *rbac.TokenService) {
	t.Helper()
	tokens := rbac.NewTokenService("router-test-secret-router-test-secret", "facturado", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{AppEnv: "test", RateLimitPerMinute: 1000, AppRequestTimeout: time.Second},
		RBACMiddleware: rbac.Middleware{Tokens: tokens, Policy: rbac.DefaultPolicy(), Logger: logger},
		Metrics:        observability.NewMetrics(),
		Health:         health,
	})
	return router, tokens
}

func TestHealthz(t *testing.T) {
	router, _ := testRouter(t, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	degraded, _ := testRouter(t, func(*http.Request) error { return errors.New("pg down") })
	rr = httptest.NewRecorder()
	degraded.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	router, tokens := testRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/me/actions", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/actions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := tokens.Issue(shared.Principal{UserID: 7, Name: "Ana", Role: shared.RoleSeller})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me/actions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		UserID  int64    `json:"user_id"`
		Role    string   `json:"role"`
		Actions []string `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, int64(7), body.UserID)
	require.Equal(t, "SELLER", body.Role)
	require.Contains(t, body.Actions, "invoice.create")
	require.NotContains(t, body.Actions, "pettycash.close")
}

func TestMetricsEndpointExposed(t *testing.T) {
	router, _ := testRouter(t, nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `facturado_http_requests_total{code="200",route="/healthz"}`)
}
