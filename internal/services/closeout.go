package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"budgetmail/internal/core"
	"budgetmail/internal/export"
	"budgetmail/internal/notify"
)

type CloseoutConfig struct {
	Budget decimal.Decimal
	DryRun bool
}

// CloseoutResult describes one period close.
type CloseoutResult struct {
	Total    decimal.Decimal
	Message  string
	Exported bool
	Reset    bool
}

// CloseoutService summarizes the period, optionally exports the ledger and
// resets it from the template.
type CloseoutService struct {
	ledger   Ledger
	notifier Notifier
	exporter Exporter
	cfg      CloseoutConfig
	logger   *slog.Logger
}

func NewCloseoutService(ledger Ledger, notifier Notifier, cfg CloseoutConfig, logger *slog.Logger) *CloseoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloseoutService{ledger: ledger, notifier: notifier, cfg: cfg, logger: logger}
}

// WithExporter emails the ledger to the configured recipients on close.
func (s *CloseoutService) WithExporter(e Exporter) *CloseoutService {
	s.exporter = e
	return s
}

func (s *CloseoutService) Run(ctx context.Context) (*CloseoutResult, error) {
	res := &CloseoutResult{}

	if err := s.ledger.Download(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.ledger.Discard(); err != nil {
			s.logger.WarnContext(ctx, "Failed to discard scratch ledger", "error", err)
		}
	}()

	amounts, err := s.ledger.ReadAmounts()
	if err != nil {
		return nil, err
	}
	res.Total = core.TotalSpend(amounts)
	s.logger.InfoContext(ctx, "Closing budget period",
		"entries", len(amounts),
		"total", res.Total.StringFixed(2),
		"budget", s.cfg.Budget.StringFixed(2),
		"dry_run", s.cfg.DryRun)

	res.Message = notify.PeriodCloseMessage(res.Total, s.cfg.Budget)
	if err := s.notifier.Publish(ctx, res.Message); err != nil {
		return nil, err
	}

	if s.exporter != nil {
		contents, err := s.ledger.Contents()
		if err != nil {
			return nil, err
		}
		if err := s.exporter.Send(ctx, res.Message, export.Ledger{FileName: s.ledger.FileName(), Contents: contents}); err != nil {
			return nil, err
		}
		res.Exported = true
	}

	if s.cfg.DryRun {
		s.logger.InfoContext(ctx, "Dry run, keeping current ledger")
		return res, nil
	}
	if err := s.ledger.ReplaceWithTemplate(ctx); err != nil {
		return nil, err
	}
	res.Reset = true
	if err := s.notifier.Publish(ctx, notify.NewPeriodMessage); err != nil {
		return nil, err
	}
	return res, nil
}
