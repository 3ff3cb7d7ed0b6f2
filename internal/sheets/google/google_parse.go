package google

import (
	"fmt"
	"strconv"
	"strings"

	"conti/internal/core"
)

// Mirror sheet layout, columns A:F.
var header = []any{"ID", "Date", "User", "Kind", "Amount", "Category"}

const lastColumn = "F"

func encodeRow(r core.Record) []any {
	return []any{r.ID, r.OccurredOn.String(), r.UserID, string(r.Kind), r.Amount.Float(), r.Category}
}

// findRow returns the 1-based sheet row whose column A holds id, or 0.
// values is the content of column A starting at row 1.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if cellString(row[0]) == want {
			return i + 1
		}
	}
	return 0
}

func cellString(v any) string {
	switch n := v.(type) {
	case float64:
		// Sheets returns numbers as float64 for unformatted values.
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
