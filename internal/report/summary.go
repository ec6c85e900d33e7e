package report

import (
	"sort"
	"time"

	"tally/internal/core"
)

// DefaultRecentLimit is used when a caller does not supply a limit.
const DefaultRecentLimit = 5

type (
	// Totals holds the income and expense sums of a snapshot, in cents.
	Totals struct {
		IncomeCents  int64 `json:"income_cents"`
		ExpenseCents int64 `json:"expense_cents"`
	}

	// DateGroup is the set of transactions sharing one calendar date.
	DateGroup struct {
		Date         string             `json:"date"` // YYYY-MM-DD
		Transactions []core.Transaction `json:"transactions"`
	}
)

// CalculateTotals sums amounts into income and expense buckets.
// An empty snapshot yields zero totals.
func CalculateTotals(ts []core.Transaction) Totals {
	var out Totals
	for _, t := range ts {
		if t.Type == core.Income {
			out.IncomeCents += t.AmountCents
		} else {
			out.ExpenseCents += t.AmountCents
		}
	}
	return out
}

// CalculateProfit returns income minus expenses. May be negative.
func CalculateProfit(ts []core.Transaction) int64 {
	totals := CalculateTotals(ts)
	return totals.IncomeCents - totals.ExpenseCents
}

// FilterByPeriod returns the subset whose date falls in [start, end) for
// the period resolved at now. Input order is preserved.
func FilterByPeriod(ts []core.Transaction, period Period, now time.Time) []core.Transaction {
	var out []core.Transaction
	for _, t := range ts {
		if period.Contains(t.Date, now) {
			out = append(out, t)
		}
	}
	return out
}

// GroupByDate partitions transactions by the calendar-date portion of
// their date, most recent day first. Member order within a group follows
// the input.
func GroupByDate(ts []core.Transaction) []DateGroup {
	grouped := make(map[string][]core.Transaction)
	var keys []string
	for _, t := range ts {
		key := t.Date.Format("2006-01-02")
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], t)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	out := make([]DateGroup, 0, len(keys))
	for _, key := range keys {
		out = append(out, DateGroup{Date: key, Transactions: grouped[key]})
	}
	return out
}

// Recent returns up to limit transactions sorted by date descending.
// The sort is stable, so transactions with equal dates keep their input
// order. A limit of zero or less yields an empty result.
func Recent(ts []core.Transaction, limit int) []core.Transaction {
	if limit <= 0 {
		return nil
	}
	sorted := make([]core.Transaction, len(ts))
	copy(sorted, ts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit]
}
