package creditnote

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/httpx"
)

// Handler exposes credit notes over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /credit-notes routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
}

// MountInvoiceRoutes registers the per-invoice reads under /invoices.
func (h *Handler) MountInvoiceRoutes(r chi.Router) {
	r.Get("/{id}/credit-notes", h.listByInvoice)
	r.Get("/{id}/net-revenue", h.netRevenue)
}

type createRequest struct {
	InvoiceID    int64       `json:"invoice_id" validate:"required,gt=0"`
	Reason       string      `json:"reason" validate:"required,max=500"`
	Items        []LineInput `json:"items" validate:"required,min=1,dive"`
	RestoreStock bool        `json:"restore_stock"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	note, err := h.service.Create(r.Context(), p, CreateInput{
		InvoiceID:    req.InvoiceID,
		Reason:       req.Reason,
		Items:        req.Items,
		RestoreStock: req.RestoreStock,
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, "creditnote.create", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, note)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	note, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, "creditnote.get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}

func (h *Handler) listByInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	notes, err := h.service.ListByInvoice(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, "creditnote.list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": notes})
}

func (h *Handler) netRevenue(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	net, err := h.service.NetRevenue(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, "creditnote.net_revenue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, net)
}
