// Package sheets defines the optional spreadsheet mirror of the ledger.
package sheets

import (
	"context"

	"budgetmail/internal/core"
)

// EntryWriter appends ledger entries to a spreadsheet, in order.
type EntryWriter interface {
	AppendEntries(ctx context.Context, entries []core.LedgerEntry) error
}

// Row renders an entry in ledger column order: who, when, what, price.
func Row(e core.LedgerEntry) []any {
	return []any{e.Payer, e.OccurredAt, e.Description, e.Amount.StringFixed(2)}
}
