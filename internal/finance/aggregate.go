// Package finance turns an unordered collection of dated transactions into
// the summaries the views render: month and day balances, per-category
// totals and calendar events. Every function is pure and never validates
// its input; validation happens in core before data reaches the collection.
package finance

import "kakeibo/internal/core"

// Aggregate sums income and expense over txs. The result does not depend on
// input order and is all zeros for an empty slice.
func Aggregate(txs []core.Transaction) core.Balance {
	var b core.Balance
	for _, t := range txs {
		b.Add(t)
	}
	return b
}

// AggregateByDay groups txs by their exact date string. Days without
// transactions are absent from the result.
func AggregateByDay(txs []core.Transaction) map[core.Date]core.Balance {
	out := make(map[core.Date]core.Balance)
	for _, t := range txs {
		b := out[t.Date]
		b.Add(t)
		out[t.Date] = b
	}
	return out
}
