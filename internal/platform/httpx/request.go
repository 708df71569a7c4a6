package httpx

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Principal returns the authenticated principal or answers 401.
func Principal(w http.ResponseWriter, r *http.Request) (shared.Principal, bool) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		Problem(w, http.StatusUnauthorized, "Unauthorized", "missing principal")
	}
	return p, ok
}

// IDParam parses a positive int64 URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalid("%s must be a positive integer", name)
	}
	return id, nil
}

// Fail logs server side failures and writes the problem response.
func Fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	if logger != nil && IsServerError(err) {
		attrs := []any{slog.String("op", op), slog.String("request_id", chimw.GetReqID(r.Context())), slog.Any("error", err)}
		if p, ok := shared.PrincipalFromContext(r.Context()); ok {
			attrs = append(attrs, slog.Int64("user_id", p.UserID))
		}
		logger.Error("request failed", attrs...)
	}
	RespondError(w, err)
}
