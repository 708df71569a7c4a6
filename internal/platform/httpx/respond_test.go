package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{shared.Invalid("qty"), http.StatusBadRequest, "INVALID"},
		{shared.NotFound("invoice", 9), http.StatusNotFound, "NOT_FOUND"},
		{&shared.OutOfStockError{ProductID: 1, Requested: 3, Available: 2}, http.StatusConflict, "OUT_OF_STOCK"},
		{fmt.Errorf("pay: %w", shared.ErrExceedsBalance), http.StatusConflict, "EXCEEDS_BALANCE"},
		{shared.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
		{shared.Persistence("insert invoice", errors.New("conn reset")), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code)
		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.code, body.Code)
		require.NotContains(t, body.Detail, "conn reset")
	}
}

type payload struct {
	Amount string `json:"amount" validate:"required"`
}

func TestDecodeJSONValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	var p payload
	err := DecodeJSON(req, &p)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10","extra":1}`))
	require.ErrorIs(t, DecodeJSON(req, &p), shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10"}`))
	require.NoError(t, DecodeJSON(req, &p))
	require.Equal(t, "10", p.Amount)
}
