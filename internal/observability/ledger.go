package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// LedgerMetrics counts committed business events. A nil receiver is a no-op.
type LedgerMetrics struct {
	invoices       *prometheus.CounterVec
	invoiceAmount  *prometheus.CounterVec
	payments       *prometheus.CounterVec
	paymentAmount  *prometheus.CounterVec
	stockRejection prometheus.Counter
}

// NewLedgerMetrics registers the ledger collectors.
func NewLedgerMetrics(registerer prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facturado_invoices_total",
			Help: "Invoices issued by payment method.",
		}, []string{"method"}),
		invoiceAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facturado_invoiced_amount_total",
			Help: "Invoiced amount in DOP by payment method.",
		}, []string{"method"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facturado_payments_total",
			Help: "Payments registered against invoices by method.",
		}, []string{"method"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facturado_payment_amount_total",
			Help: "Collected amount in DOP by method.",
		}, []string{"method"}),
		stockRejection: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facturado_stock_rejections_total",
			Help: "Sales rejected because stock was insufficient.",
		}),
	}
	registerer.MustRegister(m.invoices, m.invoiceAmount, m.payments, m.paymentAmount, m.stockRejection)
	return m
}

// InvoiceCreated records an issued invoice.
func (m *LedgerMetrics) InvoiceCreated(method string, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(method).Inc()
	m.invoiceAmount.WithLabelValues(method).Add(total.InexactFloat64())
}

// StockRejected records a sale refused for lack of stock.
func (m *LedgerMetrics) StockRejected() {
	if m == nil {
		return
	}
	m.stockRejection.Inc()
}

// PaymentRegistered records a payment applied to a balance.
func (m *LedgerMetrics) PaymentRegistered(method string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method).Inc()
	m.paymentAmount.WithLabelValues(method).Add(amount.InexactFloat64())
}
