package dailyclose

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/httpx"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Handler exposes daily closes over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /daily-close routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{date}", h.get)
	r.Put("/{date}", h.save)
	r.Get("/{date}/summary", h.summary)
	r.Get("/{date}/all", h.listByDate)
}

type saveRequest struct {
	Totals     *Totals         `json:"totals"`
	BillCounts []CurrencyCount `json:"bill_counts" validate:"dive"`
	Notes      string          `json:"notes" validate:"max=1000"`
}

func userParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalid("user_id must be a positive integer")
	}
	return id, nil
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	date, err := shared.ParseBusinessDate(chi.URLParam(r, "date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	userID, err := userParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), p, date, userID)
	if err != nil {
		httpx.Fail(w, r, h.logger, "dailyclose.summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	date, err := shared.ParseBusinessDate(chi.URLParam(r, "date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	userID, err := userParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), p, date, userID)
	if err != nil {
		httpx.Fail(w, r, h.logger, "dailyclose.get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	date, err := shared.ParseBusinessDate(chi.URLParam(r, "date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req saveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Save(r.Context(), p, SaveInput{Date: date, Totals: req.Totals, BillCounts: req.BillCounts, Notes: req.Notes})
	if err != nil {
		httpx.Fail(w, r, h.logger, "dailyclose.save", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) listByDate(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	date, err := shared.ParseBusinessDate(chi.URLParam(r, "date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	closes, err := h.service.ListByDate(r.Context(), p, date)
	if err != nil {
		httpx.Fail(w, r, h.logger, "dailyclose.list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": closes})
}
