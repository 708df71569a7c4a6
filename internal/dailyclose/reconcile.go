package dailyclose

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

const (
	statusPaid      = "PAID"
	statusCancelled = "CANCELLED"
	methodCash      = "CASH"
	methodCredit    = "CREDIT"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Aggregate computes the day totals from raw activity.
//
// Invoices paid on the spot are split by their method. Credit invoices only
// contribute through the payments received against them.
func Aggregate(a Activity) Totals {
	t := Totals{
		TotalBilled:    decimal.Zero,
		TotalCollected: decimal.Zero,
		CashCollected:  decimal.Zero,
		OtherCollected: decimal.Zero,
		TotalExpenses:  decimal.Zero,
	}
	for _, inv := range a.Invoices {
		if inv.Status == statusCancelled {
			continue
		}
		t.TotalBilled = t.TotalBilled.Add(inv.Total)
		if inv.Status != statusPaid {
			continue
		}
		t.TotalCollected = t.TotalCollected.Add(inv.Total)
		switch inv.PaymentMethod {
		case methodCredit:
		case methodCash:
			t.CashCollected = t.CashCollected.Add(inv.Total)
		default:
			t.OtherCollected = t.OtherCollected.Add(inv.Total)
		}
	}
	for _, p := range a.Payments {
		if p.Method == methodCash {
			t.CashCollected = t.CashCollected.Add(p.Amount)
		} else {
			t.OtherCollected = t.OtherCollected.Add(p.Amount)
		}
	}
	for _, e := range a.Expenses {
		t.TotalExpenses = t.TotalExpenses.Add(e.Amount)
	}
	t.NetCashInDrawer = t.CashCollected.Sub(t.TotalExpenses)
	return t
}

// Stale reports the first field where sent differs from computed by more than
// the money tolerance.
func Stale(sent, computed Totals) (string, bool) {
	fields := []struct {
		name string
		a, b decimal.Decimal
	}{
		{"total_billed", sent.TotalBilled, computed.TotalBilled},
		{"total_collected", sent.TotalCollected, computed.TotalCollected},
		{"cash_collected", sent.CashCollected, computed.CashCollected},
		{"other_collected", sent.OtherCollected, computed.OtherCollected},
		{"total_expenses", sent.TotalExpenses, computed.TotalExpenses},
		{"net_cash_in_drawer", sent.NetCashInDrawer, computed.NetCashInDrawer},
	}
	for _, f := range fields {
		if !shared.WithinTolerance(f.a, f.b) {
			return f.name, true
		}
	}
	return "", false
}

// NormalizeCounts validates a physical count and pins the base currency to rate 1.
func NormalizeCounts(counts []CurrencyCount) ([]CurrencyCount, error) {
	out := make([]CurrencyCount, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for _, c := range counts {
		code := strings.ToUpper(strings.TrimSpace(c.Currency))
		if !currencyCode.MatchString(code) {
			return nil, shared.Invalid("currency %q is not an ISO code", c.Currency)
		}
		if seen[code] {
			return nil, shared.Invalid("currency %s counted twice", code)
		}
		seen[code] = true
		rate := c.Rate
		if code == BaseCurrency {
			rate = decimal.NewFromInt(1)
		} else if !rate.IsPositive() {
			return nil, shared.Invalid("currency %s needs a positive exchange rate", code)
		}
		bills := make([]Bill, 0, len(c.Bills))
		for _, b := range c.Bills {
			if !b.Denomination.IsPositive() {
				return nil, shared.Invalid("currency %s: denomination must be positive", code)
			}
			if b.Count < 0 {
				return nil, shared.Invalid("currency %s: count must not be negative", code)
			}
			bills = append(bills, b)
		}
		out = append(out, CurrencyCount{Currency: code, Rate: rate, Bills: bills})
	}
	return out, nil
}

// CountedTotal converts a physical count into the base currency.
func CountedTotal(counts []CurrencyCount) decimal.Decimal {
	total := decimal.Zero
	for _, c := range counts {
		sub := decimal.Zero
		for _, b := range c.Bills {
			sub = sub.Add(b.Denomination.Mul(decimal.NewFromInt(int64(b.Count))))
		}
		total = total.Add(sub.Mul(c.rate()))
	}
	return shared.RoundMoney(total)
}

// rate is 1 for the base currency whatever the caller sent.
func (c CurrencyCount) rate() decimal.Decimal {
	if strings.EqualFold(strings.TrimSpace(c.Currency), BaseCurrency) {
		return decimal.NewFromInt(1)
	}
	return c.Rate
}
