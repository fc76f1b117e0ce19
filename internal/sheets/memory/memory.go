// Package memory keeps mirrored ledger rows in process, for tests and local
// runs without a spreadsheet.
package memory

import (
	"context"
	"sync"

	"budgetmail/internal/core"
	ports "budgetmail/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows [][]any
	// Err, when set, fails every append.
	Err error
}

var _ ports.EntryWriter = (*Store)(nil)

func New() *Store { return &Store{} }

func (s *Store) AppendEntries(_ context.Context, entries []core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, e := range entries {
		s.rows = append(s.rows, ports.Row(e))
	}
	return nil
}

// Rows returns a copy of the mirrored rows.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows...)
}
