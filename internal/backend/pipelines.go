package backend

import (
	"fmt"
	"log/slog"

	"budgetmail/internal/config"
	"budgetmail/internal/extract"
	"budgetmail/internal/inbound"
	"budgetmail/internal/ledger"
	blog "budgetmail/internal/log"
	"budgetmail/internal/notify"
	"budgetmail/internal/services"
)

// Ledger builds the ledger store for one invocation.
func (c *Collaborators) Ledger(cfg *config.Config, logger *slog.Logger) *ledger.Store {
	return ledger.NewStore(c.Objects, ledger.Config{
		Bucket:      cfg.LedgerBucket,
		Key:         cfg.LedgerKey,
		TemplateKey: cfg.LedgerTemplateKey,
		ScratchDir:  cfg.ScratchDir,
		DryRun:      cfg.DryRun,
	}, blog.WithComponent(logger, blog.ComponentLedger))
}

// IngestService wires the ingestion pipeline.
func (c *Collaborators) IngestService(cfg *config.Config, logger *slog.Logger) (*services.IngestService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	x := extract.New(c.Objects, extract.Config{
		Bucket:   cfg.EmailBucket,
		Prefix:   cfg.EmailPrefix,
		Location: loc,
	}, blog.WithComponent(logger, blog.ComponentExtract))

	svc := services.NewIngestService(
		inbound.NewFilter(cfg.AllowedSenders),
		x,
		c.Ledger(cfg, logger),
		notify.New(c.Publisher, c.Topic, blog.WithComponent(logger, blog.ComponentNotify)),
		services.IngestConfig{
			Budget:  cfg.PeriodBudget,
			Workers: cfg.ExtractWorkers,
			DryRun:  cfg.DryRun,
		},
		blog.WithComponent(logger, blog.ComponentIngest),
	)
	if c.Mirror != nil {
		svc.WithMirror(c.Mirror)
	}
	return svc, nil
}

// CloseoutService wires the period-close pipeline.
func (c *Collaborators) CloseoutService(cfg *config.Config, logger *slog.Logger) *services.CloseoutService {
	svc := services.NewCloseoutService(
		c.Ledger(cfg, logger),
		notify.New(c.Publisher, c.Topic, blog.WithComponent(logger, blog.ComponentNotify)),
		services.CloseoutConfig{Budget: cfg.PeriodBudget, DryRun: cfg.DryRun},
		blog.WithComponent(logger, blog.ComponentCloseout),
	)
	if c.Exporter != nil {
		svc.WithExporter(c.Exporter)
	}
	return svc
}
