package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/httpx"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Middleware wires authentication and authorization helpers for HTTP handlers.
type Middleware struct {
	Tokens *TokenService
	Policy *Policy
	Logger *slog.Logger
}

// Authenticate resolves the bearer token into a principal stored in context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		principal, err := m.Tokens.Parse(raw)
		if err != nil {
			if m.Logger != nil && !errors.Is(err, ErrExpiredToken) {
				m.Logger.Warn("rejected bearer token", slog.String("path", r.URL.Path))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireAny ensures the current principal may run at least one of the actions.
func (m Middleware) RequireAny(actions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
				return
			}
			for _, action := range actions {
				if m.Policy.Allowed(principal, action) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "operation not allowed for role "+string(principal.Role))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
