// Package extract turns a stored inbound email into a ledger entry.
//
// The amount is taken from the first text/plain MIME part, in structural
// order, whose trimmed payload parses as a non-negative decimal. Other parts
// are skipped, so mail clients that add signatures or HTML alternatives still
// work.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/shopspring/decimal"

	"budgetmail/internal/core"
	"budgetmail/internal/inbound"
	blog "budgetmail/internal/log"
	"budgetmail/internal/objstore"
)

const plainText = "text/plain"

type Config struct {
	Bucket   string
	Prefix   string
	Location *time.Location
}

// Extractor fetches raw emails from object storage and parses them.
type Extractor struct {
	objects objstore.Store
	cfg     Config
	logger  *slog.Logger
}

func New(objects objstore.Store, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Extractor{objects: objects, cfg: cfg, logger: logger}
}

// Extract builds the ledger entry for one accepted record. Every failure is
// returned as a *core.ExtractionError naming the message id.
func (x *Extractor) Extract(ctx context.Context, r inbound.Record) (core.LedgerEntry, error) {
	id := r.MessageID()
	key := objstore.JoinKey(x.cfg.Prefix, id)
	x.logger.InfoContext(ctx, "Getting email",
		blog.FieldMessageID, id,
		blog.FieldBucket, x.cfg.Bucket,
		blog.FieldKey, key)

	raw, err := x.objects.Get(ctx, x.cfg.Bucket, key)
	if err != nil {
		return core.LedgerEntry{}, &core.ExtractionError{MessageID: id, Err: err}
	}
	entry, err := x.Parse(raw)
	if err != nil {
		return core.LedgerEntry{}, &core.ExtractionError{MessageID: id, Err: err}
	}
	return entry, nil
}

// Parse builds a ledger entry from raw RFC 5322 bytes.
func (x *Extractor) Parse(raw []byte) (core.LedgerEntry, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("parse mime: %w", err)
	}

	amount, ok := x.findAmount(env.Root)
	if !ok {
		return core.LedgerEntry{}, core.ErrNoAmount
	}

	entry := core.LedgerEntry{
		Payer:       env.GetHeader("From"),
		OccurredAt:  FormatTimestamp(env.GetHeader("Date"), x.cfg.Location),
		Description: env.GetHeader("Subject"),
		Amount:      amount,
	}
	if err := entry.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}
	return entry, nil
}

func (x *Extractor) findAmount(root *enmime.Part) (decimal.Decimal, bool) {
	var amount decimal.Decimal
	found := walk(root, func(p *enmime.Part) bool {
		if !strings.EqualFold(p.ContentType, plainText) {
			return false
		}
		a, err := core.ParseAmount(string(p.Content))
		if err != nil {
			x.logger.Info("Couldn't get price from part", "error", err)
			return false
		}
		amount = a
		return true
	})
	return amount, found
}

// walk visits p, its descendants and then its following siblings, depth
// first, stopping as soon as visit returns true.
func walk(p *enmime.Part, visit func(*enmime.Part) bool) bool {
	for ; p != nil; p = p.NextSibling {
		if visit(p) {
			return true
		}
		if walk(p.FirstChild, visit) {
			return true
		}
	}
	return false
}
