package backend

import (
	"context"

	"budgetmail/internal/config"
	"budgetmail/internal/notify"
	"budgetmail/internal/objstore"
	"budgetmail/internal/sheets"
	"budgetmail/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Collaborators are the external services the pipelines depend on, built
// from configuration.
type Collaborators struct {
	Objects   objstore.Store
	Publisher notify.Publisher
	// Topic names the notification destination in errors and logs.
	Topic string
	// Exporter is nil when no export recipients are configured.
	Exporter services.Exporter
	// Mirror is nil when no spreadsheet is configured.
	Mirror  sheets.EntryWriter
	Cleanup CleanupFunc
}

// Close releases every collaborator that holds a connection.
func (c *Collaborators) Close() error {
	if c == nil || c.Cleanup == nil {
		return nil
	}
	return c.Cleanup()
}

// Factory creates collaborators based on configuration
type Factory interface {
	Create(ctx context.Context, cfg *config.Config) (*Collaborators, error)
}
