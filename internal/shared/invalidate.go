package shared

import "context"

// Invalidator drops read models derived from ledger rows, such as cached
// daily close summaries. Services call it after commit.
type Invalidator interface {
	Bump(ctx context.Context) error
}
