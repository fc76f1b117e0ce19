package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"budgetmail/internal/core"
	"budgetmail/internal/inbound"
	"budgetmail/internal/notify"
	"budgetmail/internal/sheets"
	"budgetmail/internal/worker"
)

type IngestConfig struct {
	Budget  decimal.Decimal
	Workers int
	DryRun  bool
}

// IngestResult describes one completed ingestion pass.
type IngestResult struct {
	Received int
	Accepted int
	Entries  []core.LedgerEntry
	Total    decimal.Decimal
	Message  string
}

// IngestService runs filter, extract, append, commit, aggregate and notify
// for one batch. Any failure aborts the pass before notification.
type IngestService struct {
	filter    *inbound.Filter
	extractor Extractor
	ledger    Ledger
	notifier  Notifier
	mirror    sheets.EntryWriter
	cfg       IngestConfig
	logger    *slog.Logger
}

func NewIngestService(filter *inbound.Filter, extractor Extractor, ledger Ledger, notifier Notifier, cfg IngestConfig, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = worker.DefaultWorkers
	}
	return &IngestService{
		filter:    filter,
		extractor: extractor,
		ledger:    ledger,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// WithMirror also appends committed entries to a spreadsheet.
func (s *IngestService) WithMirror(m sheets.EntryWriter) *IngestService {
	s.mirror = m
	return s
}

func (s *IngestService) Run(ctx context.Context, batch inbound.Batch) (*IngestResult, error) {
	res := &IngestResult{Received: len(batch.Records)}

	accepted, err := s.filter.Accept(batch.Records)
	if err != nil {
		return nil, err
	}
	res.Accepted = len(accepted)
	s.logger.InfoContext(ctx, "Filtered inbound events",
		"received", res.Received,
		"accepted", res.Accepted)

	entries, err := worker.Map(ctx, s.cfg.Workers, accepted, s.extractor.Extract)
	if err != nil {
		return nil, err
	}
	res.Entries = entries
	s.logger.InfoContext(ctx, "Extracted entries", "entries", len(entries))

	if err := s.ledger.Download(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.ledger.Discard(); err != nil {
			s.logger.WarnContext(ctx, "Failed to discard scratch ledger", "error", err)
		}
	}()

	if err := s.ledger.Append(entries); err != nil {
		return nil, err
	}
	if err := s.ledger.Commit(ctx); err != nil {
		return nil, err
	}
	if err := s.mirrorEntries(ctx, entries); err != nil {
		return nil, err
	}

	amounts, err := s.ledger.ReadAmounts()
	if err != nil {
		return nil, err
	}
	res.Total = core.TotalSpend(amounts)
	s.logger.InfoContext(ctx, "Computed total spend",
		"total", res.Total.StringFixed(2),
		"budget", s.cfg.Budget.StringFixed(2))

	res.Message = notify.BatchUpdateMessage(entries, res.Total, s.cfg.Budget)
	if err := s.notifier.Publish(ctx, res.Message); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *IngestService) mirrorEntries(ctx context.Context, entries []core.LedgerEntry) error {
	if s.mirror == nil || len(entries) == 0 {
		return nil
	}
	if s.cfg.DryRun {
		s.logger.InfoContext(ctx, "Dry run, skipping spreadsheet mirror", "entries", len(entries))
		return nil
	}
	if err := s.mirror.AppendEntries(ctx, entries); err != nil {
		return &core.StoreError{Op: "mirror", Key: "spreadsheet", Err: err}
	}
	return nil
}
