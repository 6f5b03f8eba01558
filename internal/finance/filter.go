package finance

import "kakeibo/internal/core"

// FilterByMonth keeps the transactions dated inside month, in input order.
//
// The test is a string prefix on "YYYY-MM-" and additionally requires the
// date to be a well-formed YYYY-MM-DD, so a malformed value such as
// "2025-080-1" is not mistaken for an August entry.
func FilterByMonth(txs []core.Transaction, month MonthKey) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, t := range txs {
		if month.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// FilterByDay keeps the transactions whose date equals day, in input order.
func FilterByDay(txs []core.Transaction, day core.Date) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, t := range txs {
		if t.Date == day {
			out = append(out, t)
		}
	}
	return out
}
