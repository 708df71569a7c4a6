package pettycash

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/httpx"
)

// Handler exposes the petty cash book over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /petty-cash routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.summary)
	r.Get("/entries", h.listOpen)
	r.Post("/entries", h.recordEntry)
	r.Post("/close", h.close)
	r.Get("/closings", h.listClosings)
}

type entryRequest struct {
	Type        string          `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required,max=250"`
}

type closeRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.logger, "pettycash.summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	items, err := h.service.OpenTransactions(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.logger, "pettycash.entries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) recordEntry(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.RecordEntry(r.Context(), p, EntryInput{Type: EntryType(req.Type), Amount: req.Amount, Description: req.Description})
	if err != nil {
		httpx.Fail(w, r, h.logger, "pettycash.entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req closeRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	closing, err := h.service.Close(r.Context(), p, req.Notes)
	if err != nil {
		httpx.Fail(w, r, h.logger, "pettycash.close", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, closing)
}

func (h *Handler) listClosings(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	closings, err := h.service.ListClosings(r.Context(), p, limit)
	if err != nil {
		httpx.Fail(w, r, h.logger, "pettycash.closings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": closings})
}
