package google

import (
	"testing"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

func TestParseRows(t *testing.T) {
	values := [][]interface{}{
		{"ID", "Date", "Account", "Category", "Kind", "Amount", "Note"},
		{"1", "2025-01-31", "Checking", "Rent", "expense", "950.00", "January rent"},
		{},
		{"#note", "ignored"},
		{float64(2), "2025-02-01", "Checking", "", "income", "1000.5"},
	}

	rows, err := parseRows(values)
	if err != nil {
		t.Fatalf("parseRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}

	first := rows[0]
	if first.ID != 1 || first.Account != "Checking" || first.Category != "Rent" || first.Kind != core.Expense {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.Amount.Cents != 95000 {
		t.Errorf("first amount = %d, want 95000", first.Amount.Cents)
	}
	if !first.Date.Equal(core.NewDate(2025, 1, 31)) {
		t.Errorf("first date = %s", first.Date)
	}

	second := rows[1]
	if second.ID != 2 || second.Amount.Cents != 100050 || second.Note != "" {
		t.Errorf("unexpected second row: %+v", second)
	}
}

func TestParseRows_BadDate(t *testing.T) {
	_, err := parseRows([][]interface{}{{"3", "31/01/2025", "A", "", "expense", "1.00", ""}})
	if err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestFindRow(t *testing.T) {
	column := [][]interface{}{{"ID"}, {"7"}, {}, {float64(12)}, {"12x"}}

	tests := []struct {
		id   int64
		want int
	}{
		{7, 2},
		{12, 4},
		{99, 0},
	}
	for _, tt := range tests {
		if got := findRow(column, tt.id); got != tt.want {
			t.Errorf("findRow(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestFormatRow_RoundTrip(t *testing.T) {
	in := ports.Row{
		ID:       42,
		Date:     core.NewDate(2024, 2, 29),
		Account:  "Cash",
		Category: "Food",
		Kind:     core.Expense,
		Amount:   core.Cents(1234),
		Note:     "lunch",
	}
	rows, err := parseRows([][]interface{}{formatRow(in)})
	if err != nil {
		t.Fatalf("parseRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if !got.Date.Equal(in.Date) {
		t.Errorf("date = %s, want %s", got.Date, in.Date)
	}
	got.Date = in.Date
	if got != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, in)
	}
}
