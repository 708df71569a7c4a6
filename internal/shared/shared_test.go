package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func TestWeightedAverageCost(t *testing.T) {
	cases := []struct {
		name  string
		stock int
		cost  string
		qty   int
		unit  string
		want  string
	}{
		{"blend", 10, "50", 5, "20", "40"},
		{"empty stock takes inbound cost", 0, "99", 4, "12.5", "12.5"},
		{"negative stock takes inbound cost", -2, "10", 3, "7", "7"},
		{"rounds to four places", 3, "40", 3, "46.6666", "43.3333"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WeightedAverageCost(tc.stock, dec(t, tc.cost), tc.qty, dec(t, tc.unit))
			require.True(t, got.Equal(dec(t, tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestMoneyTolerance(t *testing.T) {
	require.True(t, IsSettled(dec(t, "0.01")))
	require.False(t, IsSettled(dec(t, "0.02")))
	require.True(t, WithinTolerance(dec(t, "100.00"), dec(t, "99.99")))
	require.False(t, WithinTolerance(dec(t, "100.00"), dec(t, "99.98")))
	require.True(t, RoundMoney(dec(t, "10.005")).Equal(dec(t, "10.01")))
	require.True(t, ClampMoney(dec(t, "-3"), decimal.Zero, dec(t, "5")).IsZero())
	require.True(t, ClampMoney(dec(t, "9"), decimal.Zero, dec(t, "5")).Equal(dec(t, "5")))
}

func TestErrorTaxonomy(t *testing.T) {
	oos := &OutOfStockError{ProductID: 4, VariantID: 2, Requested: 3, Available: 1}
	require.ErrorIs(t, oos, ErrOutOfStock)
	require.ErrorIs(t, oos, ErrBusinessRule)
	require.Equal(t, "OUT_OF_STOCK", ErrorCode(oos))
	require.Contains(t, oos.Error(), "variant 2")

	require.Equal(t, "EXCEEDS_BALANCE", ErrorCode(ExceedsBalance("amount %s", "10")))
	require.Equal(t, "OVER_QUANTITY", ErrorCode(OverQuantity("line %d", 1)))
	require.Equal(t, "INVALID_STATE", ErrorCode(InvalidState("cancelled")))
	require.Equal(t, "INVALID", ErrorCode(Invalid("bad")))
	require.Equal(t, "NOT_FOUND", ErrorCode(NotFound("invoice", 9)))
	require.Equal(t, "BUSINESS_RULE", ErrorCode(ErrIdempotencyConflict))
	require.Equal(t, "INTERNAL", ErrorCode(errors.New("boom")))
	require.Empty(t, ErrorCode(nil))
}

func TestPersistenceWrapping(t *testing.T) {
	require.NoError(t, Persistence("op", nil))

	classified := NotFound("product", 1)
	require.Same(t, classified, Persistence("op", classified))

	driver := errors.New("connection reset")
	err := Persistence("insert invoice", driver)
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, driver)
	require.Equal(t, "insert invoice: connection reset", err.Error())
	require.Equal(t, "INTERNAL", ErrorCode(err))
}

type snapLine struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

func TestSnapshotEnvelope(t *testing.T) {
	raw, err := EncodeSnapshot([]snapLine{{SKU: "A-1", Qty: 2}})
	require.NoError(t, err)
	require.JSONEq(t, `{"schema_version":1,"items":[{"sku":"A-1","qty":2}]}`, string(raw))

	snap, err := DecodeSnapshot[snapLine](raw)
	require.NoError(t, err)
	require.Equal(t, SnapshotSchemaVersion, snap.SchemaVersion)
	require.Equal(t, []snapLine{{SKU: "A-1", Qty: 2}}, snap.Items)
}

func TestSnapshotLegacyAndEmpty(t *testing.T) {
	legacy, err := DecodeSnapshot[snapLine]([]byte(` [{"sku":"B","qty":1}]`))
	require.NoError(t, err)
	require.Zero(t, legacy.SchemaVersion)
	require.Len(t, legacy.Items, 1)

	empty, err := DecodeSnapshot[snapLine](nil)
	require.NoError(t, err)
	require.NotNil(t, empty.Items)
	require.Empty(t, empty.Items)

	_, err = DecodeSnapshot[snapLine]([]byte(`{"schema_version":7,"items":[]}`))
	require.Error(t, err)
}

func TestBusinessDay(t *testing.T) {
	// 02:00 UTC is 22:00 of the previous day in Santo Domingo.
	start, end := BusinessDay(time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC))
	require.Equal(t, "2024-02-29", start.Format(DateLayout))
	require.Equal(t, 24*time.Hour, end.Sub(start))
	require.Equal(t, "2024-02-29", FormatBusinessDate(time.Date(2024, 3, 1, 3, 59, 0, 0, time.UTC)))
	require.True(t, SameBusinessDay(start, end.Add(-time.Second)))
	require.False(t, SameBusinessDay(start, end))

	dbDate := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	require.True(t, CalendarDate(dbDate).Equal(start))
	require.True(t, CalendarDate(start).Equal(start))

	_, err := ParseBusinessDate("29/02/2024")
	require.ErrorIs(t, err, ErrValidation)
	require.True(t, start.Equal(MustBusinessDay("2024-02-29")))
	require.Panics(t, func() { MustBusinessDay("nope") })
}
