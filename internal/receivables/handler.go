package receivables

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/httpx"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sales"
)

// Handler exposes payments over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountInvoiceRoutes registers the payment routes under /invoices.
func (h *Handler) MountInvoiceRoutes(r chi.Router) {
	r.Post("/{id}/payments", h.register)
	r.Get("/{id}/payments", h.statement)
}

type registerRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required,oneof=CASH CARD TRANSFER CHECK"`
	Reference string          `json:"reference" validate:"max=120"`
	PaidAt    *time.Time      `json:"paid_at"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	receipt, err := h.service.RegisterPayment(r.Context(), p, RegisterInput{
		InvoiceID:      id,
		Amount:         req.Amount,
		Method:         sales.PaymentMethod(req.Method),
		Reference:      req.Reference,
		PaidAt:         req.PaidAt,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, "payment.register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := h.service.Statement(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, "payment.statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}
