package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/httpx"
)

// Handler exposes catalog reads over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/low-stock", h.lowStock)
	r.Get("/{id}", h.get)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	filter := ListFilter{Search: r.URL.Query().Get("q")}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	products, err := h.service.ListProducts(r.Context(), p, filter)
	if err != nil {
		httpx.Fail(w, r, h.logger, "catalog.list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	products, err := h.service.ListLowStock(r.Context(), p)
	if err != nil {
		httpx.Fail(w, r, h.logger, "catalog.low_stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
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
	product, err := h.service.GetProduct(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, "catalog.get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}
