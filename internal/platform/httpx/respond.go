// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Code   string `json:"code,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	write(w, ProblemDetail{Title: title, Status: status, Detail: detail})
}

func write(w http.ResponseWriter, p ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// DecodeJSON decodes the request body into target and validates struct tags.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return shared.Invalid("malformed body: %v", err)
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return shared.Invalid("field %s failed %s", first.Namespace(), first.Tag())
		}
		return shared.Invalid("%v", err)
	}
	return nil
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Persistence failures never leak driver detail.
func RespondError(w http.ResponseWriter, err error) {
	code := shared.ErrorCode(err)
	switch {
	case errors.Is(err, shared.ErrValidation):
		write(w, ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: err.Error(), Code: code})
	case errors.Is(err, shared.ErrNotFound):
		write(w, ProblemDetail{Title: "Not Found", Status: http.StatusNotFound, Detail: err.Error(), Code: code})
	case errors.Is(err, shared.ErrBusinessRule):
		write(w, ProblemDetail{Title: "Conflict", Status: http.StatusConflict, Detail: err.Error(), Code: code})
	case errors.Is(err, shared.ErrUnauthorized):
		write(w, ProblemDetail{Title: "Forbidden", Status: http.StatusForbidden, Detail: err.Error(), Code: code})
	default:
		write(w, ProblemDetail{Title: "Internal Error", Status: http.StatusInternalServerError, Detail: "the operation could not be completed", Code: "INTERNAL"})
	}
}

// IsServerError reports whether RespondError would answer 5xx for err.
func IsServerError(err error) bool {
	if err == nil {
		return false
	}
	return !shared.IsClassified(err) || errors.Is(err, shared.ErrPersistence)
}
