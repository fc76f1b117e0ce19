// Command budgetctl runs the budget pipelines from a terminal and moves
// objects in and out of the configured storage, for local runs and seeding.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"budgetmail/internal/backend"
	"budgetmail/internal/cli"
	"budgetmail/internal/config"
	blog "budgetmail/internal/log"
)

// app carries the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	collab *backend.Collaborators
	dryRun bool
}

func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = a.dryRun
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	collab, err := backend.NewFactory(blog.WithComponent(a.logger, blog.ComponentBackend)).Create(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	a.collab = collab
	return nil
}

// execute runs cmd and then releases the collaborators, also when cmd fails.
func (a *app) execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, a.collab.Close())
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "budgetctl",
		Short:             "Operate the expense budget ledger",
		SilenceUsage:      true,
		PersistentPreRunE: a.preRun,
	}
	cmd.PersistentFlags().BoolVar(&a.dryRun, "dry-run", false, "compute and notify without changing stored objects")

	cmd.AddCommand(ingestCommand(a))
	cmd.AddCommand(closeCommand(a))
	cmd.AddCommand(putCommand(a))
	cmd.AddCommand(getCommand(a))
	cmd.AddCommand(lsCommand(a))
	return cmd
}

func main() {
	ctx, cancel := cli.SignalContext()
	defer cancel()

	a := &app{}
	if err := a.execute(ctx, newRootCommand(a)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
