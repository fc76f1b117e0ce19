package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"budgetmail/internal/cli"
	"budgetmail/internal/inbound"
	blog "budgetmail/internal/log"
)

func ingestCommand(a *app) *cobra.Command {
	var eventFile string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Replay a saved SES receipt notification through the ingestion pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			batch, err := readBatch(cmd.InOrStdin(), eventFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			log := blog.WithInvocation(a.logger, cli.InvocationID(ctx))
			svc, err := a.collab.IngestService(a.cfg, log)
			if err != nil {
				return err
			}
			res, err := svc.Run(ctx, batch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&eventFile, "event", "-", "notification JSON file, - for stdin")
	return cmd
}

func readBatch(stdin io.Reader, path string) (inbound.Batch, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return inbound.Batch{}, fmt.Errorf("open event file: %w", err)
		}
		defer f.Close()
		r = f
	}
	var batch inbound.Batch
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return inbound.Batch{}, fmt.Errorf("decode event: %w", err)
	}
	return batch, nil
}

func closeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the current budget period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := blog.WithInvocation(a.logger, cli.InvocationID(ctx))
			res, err := a.collab.CloseoutService(a.cfg, log).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func putCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put BUCKET KEY FILE",
		Short: "Upload a file, such as a ledger template or a raw email",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[2])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[2], err)
			}
			if err := a.collab.Objects.Put(cmd.Context(), args[0], args[1], body); err != nil {
				return err
			}
			a.logger.Info("Uploaded object", blog.FieldBucket, args[0], blog.FieldKey, args[1], "bytes", len(body))
			return nil
		},
	}
}

func getCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get BUCKET KEY [FILE]",
		Short: "Download an object to a file or stdout",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := a.collab.Objects.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if len(args) == 3 {
				return os.WriteFile(args[2], body, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
}

// lister is implemented by stores that can enumerate a bucket.
type lister interface {
	Keys(ctx context.Context, bucket string) ([]string, error)
}

func lsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls BUCKET",
		Short: "List object keys in a bucket (sqlite storage only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, ok := a.collab.Objects.(lister)
			if !ok {
				return fmt.Errorf("storage backend %s cannot list keys", a.cfg.StorageBackend)
			}
			keys, err := l.Keys(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
