package dailyclose

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dopCount(bills ...Bill) []CurrencyCount {
	return []CurrencyCount{{Currency: "DOP", Bills: bills}}
}

func TestAggregateSplitsCashAndOther(t *testing.T) {
	totals := Aggregate(Activity{
		Invoices: []InvoiceRow{
			{Total: dec("3000"), Status: "PAID", PaymentMethod: "CASH"},
			{Total: dec("1200"), Status: "PAID", PaymentMethod: "CARD"},
			{Total: dec("900"), Status: "PENDING", PaymentMethod: "CREDIT"},
			{Total: dec("400"), Status: "PAID", PaymentMethod: "CREDIT"},
			{Total: dec("700"), Status: "CANCELLED", PaymentMethod: "CREDIT"},
		},
		Payments: []PaymentRow{
			{Amount: dec("400"), Method: "CASH"},
			{Amount: dec("250"), Method: "TRANSFER"},
		},
		Expenses: []ExpenseRow{{Amount: dec("150")}},
	})
	assert.True(t, dec("5500").Equal(totals.TotalBilled), totals.TotalBilled.String())
	assert.True(t, dec("4600").Equal(totals.TotalCollected), totals.TotalCollected.String())
	assert.True(t, dec("3400").Equal(totals.CashCollected), totals.CashCollected.String())
	assert.True(t, dec("1450").Equal(totals.OtherCollected), totals.OtherCollected.String())
	assert.True(t, dec("3250").Equal(totals.NetCashInDrawer), totals.NetCashInDrawer.String())
}

func TestNetCashAndDiscrepancy(t *testing.T) {
	totals := Aggregate(Activity{
		Invoices: []InvoiceRow{{Total: dec("5000"), Status: "PAID", PaymentMethod: "CASH"}},
		Expenses: []ExpenseRow{{Amount: dec("800")}},
	})
	require.True(t, dec("4200").Equal(totals.NetCashInDrawer))

	exact := CountedTotal(dopCount(Bill{Denomination: dec("2000"), Count: 2}, Bill{Denomination: dec("200"), Count: 1}))
	require.True(t, exact.Sub(totals.NetCashInDrawer).IsZero())

	short := CountedTotal(dopCount(Bill{Denomination: dec("2000"), Count: 2}))
	require.True(t, dec("-200").Equal(short.Sub(totals.NetCashInDrawer)))
}

func TestCountedTotalTreatsBaseCurrencyAsUnitRate(t *testing.T) {
	raw := []CurrencyCount{
		{Currency: "dop", Bills: []Bill{{Denomination: dec("500"), Count: 3}}},
		{Currency: "DOP", Rate: dec("42"), Bills: []Bill{{Denomination: dec("100"), Count: 1}}},
	}
	require.True(t, dec("1600").Equal(CountedTotal(raw)))
}

func TestCountedTotalConvertsCurrencies(t *testing.T) {
	counts, err := NormalizeCounts([]CurrencyCount{
		{Currency: "dop", Rate: dec("99"), Bills: []Bill{{Denomination: dec("1000"), Count: 3}}},
		{Currency: "USD", Rate: dec("58.50"), Bills: []Bill{{Denomination: dec("20"), Count: 2}}},
	})
	require.NoError(t, err)
	require.Equal(t, "DOP", counts[0].Currency)
	require.True(t, counts[0].Rate.Equal(decimal.NewFromInt(1)))
	require.True(t, dec("5340").Equal(CountedTotal(counts)))
}

func TestNormalizeCountsRejectsBadInput(t *testing.T) {
	cases := map[string][]CurrencyCount{
		"bad code":       {{Currency: "PESOS"}},
		"duplicate":      {{Currency: "DOP"}, {Currency: "dop"}},
		"missing rate":   {{Currency: "USD", Bills: []Bill{{Denomination: dec("1"), Count: 1}}}},
		"negative count": {{Currency: "DOP", Bills: []Bill{{Denomination: dec("100"), Count: -1}}}},
		"zero bill":      {{Currency: "DOP", Bills: []Bill{{Denomination: dec("0"), Count: 1}}}},
	}
	for name, counts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeCounts(counts)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestStaleDetectsDriftBeyondTolerance(t *testing.T) {
	computed := Totals{CashCollected: dec("100"), NetCashInDrawer: dec("100")}
	_, stale := Stale(Totals{CashCollected: dec("100.01"), NetCashInDrawer: dec("100")}, computed)
	assert.False(t, stale)
	field, stale := Stale(Totals{CashCollected: dec("100"), NetCashInDrawer: dec("90")}, computed)
	assert.True(t, stale)
	assert.Equal(t, "net_cash_in_drawer", field)
}
