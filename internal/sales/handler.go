package sales

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/httpx"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Handler exposes invoices and quotes over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountInvoiceRoutes registers /invoices routes except payments.
func (h *Handler) MountInvoiceRoutes(r chi.Router) {
	r.Post("/", h.createInvoice)
	r.Get("/{id}", h.getInvoice)
	r.Post("/{id}/cancel", h.cancelInvoice)
}

// MountQuoteRoutes registers /quotes routes.
func (h *Handler) MountQuoteRoutes(r chi.Router) {
	r.Post("/", h.createQuote)
	r.Get("/{id}", h.getQuote)
	r.Post("/{id}/accept", h.acceptQuote)
	r.Post("/{id}/reject", h.rejectQuote)
	r.Post("/{id}/convert", h.convertQuote)
}

type createInvoiceRequest struct {
	ClientID      int64       `json:"client_id" validate:"required,gt=0"`
	Items         []LineInput `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string      `json:"payment_method" validate:"required,oneof=CASH CARD TRANSFER CHECK CREDIT"`
	Notes         string      `json:"notes" validate:"max=500"`
}

type createQuoteRequest struct {
	ClientID   int64       `json:"client_id" validate:"required,gt=0"`
	Items      []LineInput `json:"items" validate:"required,min=1,dive"`
	ValidUntil string      `json:"valid_until"`
	Notes      string      `json:"notes" validate:"max=500"`
}

type convertQuoteRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=CASH CARD TRANSFER CHECK CREDIT"`
}

type cancelInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.CreateInvoice(r.Context(), p, CreateInvoiceInput{
		ClientID:       req.ClientID,
		Items:          req.Items,
		PaymentMethod:  PaymentMethod(req.PaymentMethod),
		Notes:          req.Notes,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, "invoice.create", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.GetInvoice(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, "invoice.get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req cancelInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.CancelInvoice(r.Context(), p, CancelInvoiceInput{InvoiceID: id, Reason: req.Reason})
	if err != nil {
		httpx.Fail(w, r, h.logger, "invoice.cancel", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) createQuote(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req createQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateQuoteInput{ClientID: req.ClientID, Items: req.Items, Notes: req.Notes}
	if req.ValidUntil != "" {
		day, err := shared.ParseBusinessDate(req.ValidUntil)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.ValidUntil = &day
	}
	quote, err := h.service.CreateQuote(r.Context(), p, input)
	if err != nil {
		httpx.Fail(w, r, h.logger, "quote.create", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request) {
	h.quoteAction(w, r, "quote.get", h.service.GetQuote)
}

func (h *Handler) acceptQuote(w http.ResponseWriter, r *http.Request) {
	h.quoteAction(w, r, "quote.accept", h.service.AcceptQuote)
}

func (h *Handler) rejectQuote(w http.ResponseWriter, r *http.Request) {
	h.quoteAction(w, r, "quote.reject", h.service.RejectQuote)
}

func (h *Handler) quoteAction(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, p shared.Principal, id int64) (Quote, error)) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	quote, err := fn(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, r, h.logger, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) convertQuote(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req convertQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.ConvertQuote(r.Context(), p, ConvertQuoteInput{
		QuoteID:        id,
		PaymentMethod:  PaymentMethod(req.PaymentMethod),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, "quote.convert", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}
