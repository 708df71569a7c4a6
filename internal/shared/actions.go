package shared

// Ledger actions checked by the policy table.
const (
	ActionCatalogView = "catalog.view"

	ActionInvoiceCreate = "invoice.create"
	ActionInvoiceView   = "invoice.view"
	ActionInvoiceCancel = "invoice.cancel"

	ActionQuoteCreate  = "quote.create"
	ActionQuoteConvert = "quote.convert"

	ActionCreditNoteCreate = "creditnote.create"

	ActionPaymentRegister = "payment.register"

	ActionPurchaseCreate = "purchase.create"

	ActionPettyCashEntry           = "pettycash.entry"
	ActionPettyCashView            = "pettycash.view"
	ActionPettyCashDiscrepancyView = "pettycash.discrepancy.view"
	ActionPettyCashClose           = "pettycash.close"

	ActionDailyCloseSave    = "dailyclose.save"
	ActionDailyCloseViewAll = "dailyclose.view_all"
)

// AllActions lists every action known to the policy table.
func AllActions() []string {
	return []string{
		ActionCatalogView,
		ActionInvoiceCreate,
		ActionInvoiceView,
		ActionInvoiceCancel,
		ActionQuoteCreate,
		ActionQuoteConvert,
		ActionCreditNoteCreate,
		ActionPaymentRegister,
		ActionPurchaseCreate,
		ActionPettyCashEntry,
		ActionPettyCashView,
		ActionPettyCashDiscrepancyView,
		ActionPettyCashClose,
		ActionDailyCloseSave,
		ActionDailyCloseViewAll,
	}
}

// Authorizer checks a principal against an action before any read or write.
type Authorizer interface {
	Authorize(p Principal, action string) error
	Allowed(p Principal, action string) bool
}
