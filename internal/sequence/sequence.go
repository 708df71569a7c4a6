// Package sequence allocates gap-free document numbers inside the caller's transaction.
package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Kind names an independent counter.
type Kind string

// Document counters.
const (
	KindInvoice    Kind = "invoice"
	KindQuote      Kind = "quote"
	KindCreditNote Kind = "credit_note"
	KindPurchase   Kind = "purchase"
)

// NCF (comprobante fiscal) types issued by the ledger.
const (
	NCFCreditFiscal = "B01"
	NCFConsumer     = "B02"
	NCFCreditNote   = "B04"
)

// Document number prefixes.
const (
	PrefixInvoice    = "FAC"
	PrefixQuote      = "COT"
	PrefixCreditNote = "NC"
	PrefixPurchase   = "COM"
)

// NCFKind returns the counter used for an NCF type.
func NCFKind(ncfType string) Kind {
	return Kind("ncf:" + ncfType)
}

// Row is satisfied by pgx.Tx.
type Row interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Next increments the counter for kind and returns the new value. The counter row
// stays locked until the surrounding transaction ends, and a rollback returns the
// number to the pool.
func Next(ctx context.Context, q Row, kind Kind) (int64, error) {
	if kind == "" {
		return 0, fmt.Errorf("sequence: kind required")
	}
	var value int64
	err := q.QueryRow(ctx, `INSERT INTO document_sequences (kind, value) VALUES ($1, 1)
ON CONFLICT (kind) DO UPDATE SET value = document_sequences.value + 1
RETURNING value`, string(kind)).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("sequence: next %s: %w", kind, err)
	}
	return value, nil
}

// Format renders a document number such as FAC-00000042.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s-%08d", prefix, n)
}

// FormatNCF renders an NCF such as B0200000042.
func FormatNCF(ncfType string, n int64) string {
	return fmt.Sprintf("%s%08d", ncfType, n)
}

// NCFTypeForClient picks B01 for clients with a tax id and B02 otherwise.
func NCFTypeForClient(rnc string) string {
	if rnc != "" {
		return NCFCreditFiscal
	}
	return NCFConsumer
}
