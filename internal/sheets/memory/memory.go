package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	ports "fintrack/internal/sheets"
)

// Store is an in-process ledger mirror used when no spreadsheet is
// configured, and in tests.
type Store struct {
	mu   sync.Mutex
	rows map[int64]ports.Row
}

var (
	_ ports.LedgerMirror = (*Store)(nil)
	_ ports.LedgerReader = (*Store)(nil)
)

func New() *Store {
	return &Store{rows: make(map[int64]ports.Row)}
}

func (s *Store) Upsert(_ context.Context, r ports.Row) error {
	if r.ID <= 0 {
		return fmt.Errorf("invalid row id %d", r.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.ID] = r
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// List returns the rows ordered by ID.
func (s *Store) List(_ context.Context) ([]ports.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
