// Package services holds the two budget pipelines: ingesting a batch of
// inbound expense emails, and closing out a budget period.
package services

import (
	"context"

	"github.com/shopspring/decimal"

	"budgetmail/internal/core"
	"budgetmail/internal/export"
	"budgetmail/internal/inbound"
)

// Ledger is the staging view of the period ledger used by both pipelines.
type Ledger interface {
	Download(ctx context.Context) error
	Append(entries []core.LedgerEntry) error
	Commit(ctx context.Context) error
	ReadAmounts() ([]decimal.Decimal, error)
	Contents() ([]byte, error)
	FileName() string
	ReplaceWithTemplate(ctx context.Context) error
	Discard() error
}

// Extractor builds one ledger entry from one accepted inbound record.
type Extractor interface {
	Extract(ctx context.Context, r inbound.Record) (core.LedgerEntry, error)
}

// Notifier publishes a message on the notification channel.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}

// Exporter emails the ledger at period close.
type Exporter interface {
	Send(ctx context.Context, body string, ledger export.Ledger) error
}
