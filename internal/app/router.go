package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/catalog"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/creditnote"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/dailyclose"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/observability"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/pettycash"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/platform/httpx"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/purchasing"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/rbac"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/receivables"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/sales"
	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics
	Health         func(r *http.Request) error

	CatalogHandler     *catalog.Handler
	SalesHandler       *sales.Handler
	CreditNoteHandler  *creditnote.Handler
	ReceivablesHandler *receivables.Handler
	PurchasingHandler  *purchasing.Handler
	PettyCashHandler   *pettycash.Handler
	DailyCloseHandler  *dailyclose.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: logger, Config: params.Config, Metrics: params.Metrics}) {
		r.Use(mw)
	}
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Health != nil {
			if err := params.Health(r); err != nil {
				logger.Warn("health check", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(params.RBACMiddleware.Authenticate)
		if params.CatalogHandler != nil {
			r.Route("/products", params.CatalogHandler.MountRoutes)
		}
		r.Route("/invoices", func(r chi.Router) {
			if params.SalesHandler != nil {
				params.SalesHandler.MountInvoiceRoutes(r)
			}
			if params.CreditNoteHandler != nil {
				params.CreditNoteHandler.MountInvoiceRoutes(r)
			}
			if params.ReceivablesHandler != nil {
				params.ReceivablesHandler.MountInvoiceRoutes(r)
			}
		})
		if params.SalesHandler != nil {
			r.Route("/quotes", params.SalesHandler.MountQuoteRoutes)
		}
		if params.CreditNoteHandler != nil {
			r.Route("/credit-notes", params.CreditNoteHandler.MountRoutes)
		}
		if params.PurchasingHandler != nil {
			r.Route("/purchases", params.PurchasingHandler.MountRoutes)
		}
		if params.PettyCashHandler != nil {
			r.Route("/petty-cash", params.PettyCashHandler.MountRoutes)
		}
		if params.DailyCloseHandler != nil {
			r.Route("/daily-close", params.DailyCloseHandler.MountRoutes)
		}
		r.Get("/me/actions", func(w http.ResponseWriter, r *http.Request) {
			principal, ok := httpx.Principal(w, r)
			if !ok {
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]any{
				"user_id": principal.UserID,
				"role":    principal.Role,
				"actions": params.RBACMiddleware.Policy.Actions(principal),
			})
		})
	})

	return r
}
