package core

import "sort"

// CategoryTotal is an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Amount   Money
}

// DailyTotal is an amount aggregated by calendar date.
type DailyTotal struct {
	Date   Date
	Amount Money
}

// SummarizeByCategory sums record amounts grouped by category, one row per
// distinct category. Rows come out sorted by descending amount so chart
// inputs are stable run to run; callers that do not care about order lose
// nothing.
func SummarizeByCategory(records []ExpenseRecord) []CategoryTotal {
	byCat := map[string]int64{}
	order := make([]string, 0)
	for _, r := range records {
		if _, seen := byCat[r.Category]; !seen {
			order = append(order, r.Category)
		}
		byCat[r.Category] += r.Amount.Cents
	}
	out := make([]CategoryTotal, 0, len(order))
	for _, name := range order {
		out = append(out, CategoryTotal{Category: name, Amount: Money{Cents: byCat[name]}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// SummarizeByDay sums record amounts grouped by date, sorted ascending for
// trend rendering.
func SummarizeByDay(records []ExpenseRecord) []DailyTotal {
	byDay := map[string]DailyTotal{}
	for _, r := range records {
		key := r.Date.Key()
		dt, seen := byDay[key]
		if !seen {
			dt = DailyTotal{Date: r.Date}
		}
		dt.Amount = dt.Amount.Add(r.Amount)
		byDay[key] = dt
	}
	out := make([]DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}

// Total sums all record amounts.
func Total(records []ExpenseRecord) Money {
	var total Money
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// SortRecordsForTable orders records by descending date for the detailed
// table view. The input slice is left untouched.
func SortRecordsForTable(records []ExpenseRecord) []ExpenseRecord {
	out := make([]ExpenseRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}
