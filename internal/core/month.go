package core

import "time"

// YearMonthLayout is the bucket key format ("2024-03").
const YearMonthLayout = "2006-01"

// MonthBucket is one entry of a chart series: a calendar month with the
// summed amount for that month, zero when nothing matched.
type MonthBucket struct {
	YearMonth string
	Label     string
	Total     Money
}

// YearMonthOf derives the bucket key from a date. Every write path that
// stores a date must run it through here; the persisted year_month column is
// an index key, never an independent source of truth.
func YearMonthOf(t time.Time) string {
	return t.Format(YearMonthLayout)
}

// ValidYearMonth reports whether s is a well-formed bucket key.
func ValidYearMonth(s string) bool {
	_, err := time.Parse(YearMonthLayout, s)
	return err == nil
}

// MonthLabel returns the English month name for a bucket key ("2024-03" ->
// "March"). Malformed keys label as the key itself.
func MonthLabel(yearMonth string) string {
	t, err := time.Parse(YearMonthLayout, yearMonth)
	if err != nil {
		return yearMonth
	}
	return t.Month().String()
}

// LastMonths returns the n bucket keys ending with the month of now, oldest
// first.
func LastMonths(now time.Time, n int) []string {
	keys := make([]string, 0, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, YearMonthOf(first.AddDate(0, -i, 0)))
	}
	return keys
}

// PreviousMonth returns the bucket key of the month before now.
func PreviousMonth(now time.Time) string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return YearMonthOf(first.AddDate(0, -1, 0))
}

// FillMonthBuckets expands sparse per-month totals into a dense series for
// the n months ending at now: one bucket per calendar month, oldest first,
// months without data at zero.
func FillMonthBuckets(now time.Time, n int, totals map[string]int64) []MonthBucket {
	keys := LastMonths(now, n)
	buckets := make([]MonthBucket, len(keys))
	for i, key := range keys {
		buckets[i] = MonthBucket{
			YearMonth: key,
			Label:     MonthLabel(key),
			Total:     Money{Cents: totals[key]},
		}
	}
	return buckets
}

// PercentChange computes the relative change from previous to current in
// percent. An empty previous month is treated as a flat baseline (0) unless
// the current month has data, in which case the change reads as 100.
func PercentChange(current, previous int64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return float64(current-previous) / float64(previous) * 100
}
