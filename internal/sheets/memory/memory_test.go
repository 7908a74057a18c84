package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

func TestStoreUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, id := range []int64{3, 1, 2} {
		if err := s.Upsert(ctx, ports.Row{ID: id, Kind: core.Expense, Amount: core.Cents(id * 100)}); err != nil {
			t.Fatalf("Upsert(%d) error = %v", id, err)
		}
	}
	if err := s.Upsert(ctx, ports.Row{ID: 2, Kind: core.Income, Amount: core.Cents(999)}); err != nil {
		t.Fatalf("Upsert replace error = %v", err)
	}

	rows, _ := s.List(ctx)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, want := range []int64{1, 2, 3} {
		if rows[i].ID != want {
			t.Fatalf("rows not ordered by id: %+v", rows)
		}
	}
	if rows[1].Kind != core.Income || rows[1].Amount.Cents != 999 {
		t.Errorf("row 2 not replaced: %+v", rows[1])
	}

	if err := s.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete error = %v", err)
	}
	if err := s.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete of absent row error = %v", err)
	}
	rows, _ = s.List(ctx)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after delete, got %d", len(rows))
	}
}

func TestStoreRejectsInvalidID(t *testing.T) {
	if err := New().Upsert(context.Background(), ports.Row{}); err == nil {
		t.Fatal("expected error for zero id")
	}
}
