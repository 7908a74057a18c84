package google

import (
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// formatRow renders r in Header column order. Rows are written RAW so the
// date and amount read back exactly as written.
func formatRow(r ports.Row) []interface{} {
	return []interface{}{
		r.ID,
		r.Date.String(),
		r.Account,
		r.Category,
		string(r.Kind),
		r.Amount.String(),
		r.Note,
	}
}

// parseRows converts a values matrix (as returned by the Sheets API for
// A:G) into rows. The header and rows without a numeric ID are skipped.
func parseRows(values [][]interface{}) ([]ports.Row, error) {
	out := make([]ports.Row, 0, len(values))
	for i, raw := range values {
		cols := toStrings(raw)
		id, ok := parseID(safeGet(cols, 0))
		if !ok {
			continue
		}
		date, err := core.ParseDate(safeGet(cols, 1))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		amount, err := core.ParseMoney(safeGet(cols, 5))
		if err != nil {
			return nil, fmt.Errorf("row %d: amount %q: %w", i+1, safeGet(cols, 5), err)
		}
		out = append(out, ports.Row{
			ID:       id,
			Date:     date,
			Account:  safeGet(cols, 2),
			Category: safeGet(cols, 3),
			Kind:     core.Kind(safeGet(cols, 4)),
			Amount:   amount,
			Note:     safeGet(cols, 6),
		})
	}
	return out, nil
}

// findRow returns the 1-based sheet row holding id in the ID column, or 0.
func findRow(idColumn [][]interface{}, id int64) int {
	for i, raw := range idColumn {
		if len(raw) == 0 {
			continue
		}
		if got, ok := parseID(fmt.Sprint(raw[0])); ok && got == id {
			return i + 1
		}
	}
	return 0
}

func parseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
