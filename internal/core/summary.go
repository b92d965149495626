package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel is the category assigned to expenses without one.
const UncategorizedLabel = "uncategorized"

// ErrMalformedRecord marks a record the aggregator cannot group.
var ErrMalformedRecord = errors.New("malformed record")

type (
	// MonetaryRecord is one dated amount fed to Aggregate. An empty Category
	// means the record has none.
	MonetaryRecord struct {
		Date     string
		Amount   decimal.Decimal
		Category string
	}

	// MonthKey is the "YYYY-MM" prefix of a record date.
	MonthKey string

	MonthlyBucket struct {
		Month        MonthKey
		RevenueTotal decimal.Decimal
		ExpenseTotal decimal.Decimal
	}

	CategoryBucket struct {
		Category string
		Total    decimal.Decimal
	}

	// AggregateResult is everything the dashboard needs to draw its cards
	// and charts.
	AggregateResult struct {
		TotalRevenue      decimal.Decimal
		TotalExpense      decimal.Decimal
		AvailableBalance  decimal.Decimal
		MonthlySeries     []MonthlyBucket
		CategoryBreakdown []CategoryBucket
	}
)

// MonthOf returns the month key of a record date. Dates shorter than seven
// characters are malformed.
func MonthOf(date string) (MonthKey, error) {
	if len(date) < 7 {
		return "", fmt.Errorf("%w: date %q has no month prefix", ErrMalformedRecord, date)
	}
	return MonthKey(date[:7]), nil
}

// Aggregate computes totals, the per-month series and the expense breakdown
// by category in one pass over each input.
//
// Precondition: every record date has at least a "YYYY-MM" prefix. The first
// record violating it aborts the call with an error wrapping
// ErrMalformedRecord; records are never skipped. Amounts are summed as-is,
// negative values included.
func Aggregate(revenues, expenses []MonetaryRecord) (AggregateResult, error) {
	res := AggregateResult{
		TotalRevenue: decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	months := make(map[MonthKey]*MonthlyBucket)
	bucket := func(k MonthKey) *MonthlyBucket {
		b, ok := months[k]
		if !ok {
			b = &MonthlyBucket{Month: k, RevenueTotal: decimal.Zero, ExpenseTotal: decimal.Zero}
			months[k] = b
		}
		return b
	}

	for i, r := range revenues {
		k, err := MonthOf(r.Date)
		if err != nil {
			return AggregateResult{}, fmt.Errorf("revenue %d: %w", i, err)
		}
		res.TotalRevenue = res.TotalRevenue.Add(r.Amount)
		b := bucket(k)
		b.RevenueTotal = b.RevenueTotal.Add(r.Amount)
	}

	categoryIdx := make(map[string]int)
	res.CategoryBreakdown = make([]CategoryBucket, 0)
	for i, e := range expenses {
		k, err := MonthOf(e.Date)
		if err != nil {
			return AggregateResult{}, fmt.Errorf("expense %d: %w", i, err)
		}
		res.TotalExpense = res.TotalExpense.Add(e.Amount)
		b := bucket(k)
		b.ExpenseTotal = b.ExpenseTotal.Add(e.Amount)

		cat := e.Category
		if cat == "" {
			cat = UncategorizedLabel
		}
		idx, ok := categoryIdx[cat]
		if !ok {
			idx = len(res.CategoryBreakdown)
			categoryIdx[cat] = idx
			res.CategoryBreakdown = append(res.CategoryBreakdown, CategoryBucket{Category: cat, Total: decimal.Zero})
		}
		res.CategoryBreakdown[idx].Total = res.CategoryBreakdown[idx].Total.Add(e.Amount)
	}

	res.MonthlySeries = make([]MonthlyBucket, 0, len(months))
	for _, b := range months {
		res.MonthlySeries = append(res.MonthlySeries, *b)
	}
	sort.Slice(res.MonthlySeries, func(i, j int) bool {
		return res.MonthlySeries[i].Month < res.MonthlySeries[j].Month
	})

	res.AvailableBalance = res.TotalRevenue.Sub(res.TotalExpense)
	return res, nil
}
