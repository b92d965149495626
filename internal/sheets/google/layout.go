package google

import (
	"fmt"
	"time"

	"minitracker/internal/sheets"
)

// Column span of the exported tab. Rows are written from A1.
const (
	firstCol = "A"
	lastCol  = "D"
)

// buildRows lays a snapshot out as a header block, the monthly series and the
// category breakdown, separated by blank rows. Amounts are written as plain
// decimal strings so USER_ENTERED parses them as numbers.
func buildRows(s sheets.Snapshot) [][]any {
	r := s.Result
	rows := [][]any{
		{"Owner", s.OwnerID},
		{"Generated", s.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total revenue", r.TotalRevenue.StringFixed(2)},
		{"Total expenses", r.TotalExpense.StringFixed(2)},
		{"Available balance", r.AvailableBalance.StringFixed(2)},
		{},
		{"Month", "Revenue", "Expenses", "Net"},
	}
	for _, b := range r.MonthlySeries {
		rows = append(rows, []any{
			string(b.Month),
			b.RevenueTotal.StringFixed(2),
			b.ExpenseTotal.StringFixed(2),
			b.RevenueTotal.Sub(b.ExpenseTotal).StringFixed(2),
		})
	}

	rows = append(rows, []any{}, []any{"Category", "Total"})
	for _, c := range r.CategoryBreakdown {
		rows = append(rows, []any{c.Category, c.Total.StringFixed(2)})
	}
	return rows
}

func sheetRange(sheet string, rows int) string {
	return fmt.Sprintf("'%s'!%s1:%s%d", sheet, firstCol, lastCol, rows)
}

// columnsRange covers every row of the exported columns.
func columnsRange(sheet string) string {
	return fmt.Sprintf("'%s'!%s:%s", sheet, firstCol, lastCol)
}
