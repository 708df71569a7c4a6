package purchasing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/httpx"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Handler exposes purchases over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /purchases routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
}

type createRequest struct {
	SupplierID   int64       `json:"supplier_id" validate:"required,gt=0"`
	Items        []ItemInput `json:"items" validate:"required,min=1,dive"`
	PurchaseDate string      `json:"purchase_date"`
	Notes        string      `json:"notes" validate:"max=500"`
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
	var date *time.Time
	if req.PurchaseDate != "" {
		d, err := shared.ParseBusinessDate(req.PurchaseDate)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		date = &d
	}
	purchase, err := h.service.CreatePurchase(r.Context(), p, CreateInput{
		SupplierID:   req.SupplierID,
		Items:        req.Items,
		PurchaseDate: date,
		Notes:        req.Notes,
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, "purchase.create", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, purchase)
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
	purchase, err := h.service.GetPurchase(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, "purchase.get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}
