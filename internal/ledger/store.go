// Package ledger stages the period ledger CSV: download it from object
// storage into a scratch file, append to the scratch copy, and commit it back.
//
// The remote copy only changes on Commit or ReplaceWithTemplate. A crash
// between Append and Commit leaves the remote ledger stale, never partial.
package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"budgetmail/internal/core"
	"budgetmail/internal/objstore"
)

type Config struct {
	Bucket      string
	Key         string
	TemplateKey string
	ScratchDir  string
	DryRun      bool
}

type Store struct {
	objects objstore.Store
	cfg     Config
	scratch string
	logger  *slog.Logger
}

func NewStore(objects objstore.Store, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	dir := cfg.ScratchDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := strings.ReplaceAll(cfg.Key, "/", "_")
	return &Store{
		objects: objects,
		cfg:     cfg,
		scratch: filepath.Join(dir, name),
		logger:  logger,
	}
}

// ScratchPath is the local staging file.
func (s *Store) ScratchPath() string { return s.scratch }

// FileName is the base name of the remote ledger key.
func (s *Store) FileName() string { return filepath.Base(s.cfg.Key) }

func (s *Store) fail(op string, err error) error {
	return &core.StoreError{Op: op, Key: s.cfg.Bucket + "/" + s.cfg.Key, Err: err}
}

// Download replaces the scratch copy with the remote ledger.
func (s *Store) Download(ctx context.Context) error {
	body, err := s.objects.Get(ctx, s.cfg.Bucket, s.cfg.Key)
	if err != nil {
		return s.fail("download", err)
	}
	if err := os.WriteFile(s.scratch, body, 0o600); err != nil {
		return s.fail("download", fmt.Errorf("write scratch copy: %w", err))
	}
	s.logger.InfoContext(ctx, "Downloaded ledger",
		"bucket", s.cfg.Bucket,
		"key", s.cfg.Key,
		"bytes", len(body))
	return nil
}

// Append writes entries to the scratch copy in order. Rows are encoded up
// front and written with a single call, so no partial row is left behind by
// an encoding failure.
func (s *Store) Append(entries []core.LedgerEntry) error {
	f, err := os.OpenFile(s.scratch, os.O_RDWR|os.O_APPEND, 0)
	if err != nil {
		return s.fail("append", fmt.Errorf("open scratch copy: %w", err))
	}
	defer f.Close()

	var buf bytes.Buffer
	needsNewline, err := missingTrailingNewline(f)
	if err != nil {
		return s.fail("append", err)
	}
	if needsNewline && len(entries) > 0 {
		buf.WriteByte('\n')
	}
	w := csv.NewWriter(&buf)
	for _, e := range entries {
		if err := w.Write(e.Record()); err != nil {
			return s.fail("append", fmt.Errorf("encode row: %w", err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return s.fail("append", fmt.Errorf("encode rows: %w", err))
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return s.fail("append", fmt.Errorf("write scratch copy: %w", err))
	}
	if err := f.Close(); err != nil {
		return s.fail("append", fmt.Errorf("close scratch copy: %w", err))
	}
	s.logger.Info("Updated local ledger", "entries", len(entries))
	return nil
}

func missingTrailingNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat scratch copy: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("read scratch copy: %w", err)
	}
	return last[0] != '\n', nil
}

// Commit uploads the scratch copy over the remote ledger. It is a no-op in
// dry-run mode.
func (s *Store) Commit(ctx context.Context) error {
	if s.cfg.DryRun {
		s.logger.InfoContext(ctx, "Dry run, skipping ledger commit", "key", s.cfg.Key)
		return nil
	}
	body, err := os.ReadFile(s.scratch)
	if err != nil {
		return s.fail("commit", fmt.Errorf("read scratch copy: %w", err))
	}
	if err := s.objects.Put(ctx, s.cfg.Bucket, s.cfg.Key, body); err != nil {
		return s.fail("commit", err)
	}
	s.logger.InfoContext(ctx, "Committed ledger",
		"bucket", s.cfg.Bucket,
		"key", s.cfg.Key,
		"bytes", len(body))
	return nil
}

// ReadAmounts parses the price column of the scratch copy in file order.
func (s *Store) ReadAmounts() ([]decimal.Decimal, error) {
	f, err := os.Open(s.scratch)
	if err != nil {
		return nil, s.fail("read", fmt.Errorf("open scratch copy: %w", err))
	}
	defer f.Close()

	amounts, err := readAmounts(f)
	if err != nil {
		return nil, s.fail("read", err)
	}
	return amounts, nil
}

func readAmounts(r io.Reader) ([]decimal.Decimal, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == core.ColumnPrice {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, fmt.Errorf("%w: no %q column in %v", core.ErrMissingHeader, core.ColumnPrice, header)
	}

	var amounts []decimal.Decimal
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if col >= len(rec) {
			return nil, fmt.Errorf("line %d: missing %s cell", line, core.ColumnPrice)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(rec[col]))
		if err != nil {
			return nil, fmt.Errorf("line %d: non-numeric %s %q", line, core.ColumnPrice, rec[col])
		}
		amounts = append(amounts, amount)
	}
	return amounts, nil
}

// Contents returns the raw scratch copy, used as the export attachment.
func (s *Store) Contents() ([]byte, error) {
	body, err := os.ReadFile(s.scratch)
	if err != nil {
		return nil, s.fail("contents", err)
	}
	return body, nil
}

// ReplaceWithTemplate overwrites the remote ledger with the template,
// discarding every entry of the period. It is a no-op in dry-run mode.
func (s *Store) ReplaceWithTemplate(ctx context.Context) error {
	if s.cfg.DryRun {
		s.logger.InfoContext(ctx, "Dry run, skipping ledger reset", "key", s.cfg.Key)
		return nil
	}
	if err := s.objects.Copy(ctx, s.cfg.Bucket, s.cfg.TemplateKey, s.cfg.Key); err != nil {
		return s.fail("replace", err)
	}
	s.logger.InfoContext(ctx, "Reset ledger from template",
		"bucket", s.cfg.Bucket,
		"template_key", s.cfg.TemplateKey,
		"key", s.cfg.Key)
	return nil
}

// Discard removes the scratch copy. A missing file is not an error.
func (s *Store) Discard() error {
	if err := os.Remove(s.scratch); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove scratch copy: %w", err)
	}
	return nil
}
