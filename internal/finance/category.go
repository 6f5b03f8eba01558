package finance

import (
	"slices"

	"kakeibo/internal/core"
)

// CategoryTotal is one slice of a category chart.
type CategoryTotal struct {
	Category core.Category `json:"category"`
	Amount   int64         `json:"amount"`
	// Percent of the type total, rounded half up to one decimal.
	Percent float64 `json:"percent"`
}

// SumByCategory accumulates amounts per category for transactions of typ.
// Categories without transactions are absent.
func SumByCategory(txs []core.Transaction, typ core.Type) map[core.Category]int64 {
	out := make(map[core.Category]int64)
	for _, t := range txs {
		if t.Type != typ {
			continue
		}
		out[t.Category] += t.Amount
	}
	return out
}

// CategoryShares returns the non-zero category totals of typ in the fixed
// enumeration order, followed by any unknown categories present in txs.
func CategoryShares(txs []core.Transaction, typ core.Type) []CategoryTotal {
	sums := SumByCategory(txs, typ)
	var total int64
	for _, v := range sums {
		total += v
	}

	out := make([]CategoryTotal, 0, len(sums))
	seen := make(map[core.Category]bool, len(sums))
	add := func(c core.Category) {
		amt, ok := sums[c]
		if !ok || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, CategoryTotal{Category: c, Amount: amt, Percent: percent(amt, total)})
	}
	for _, c := range core.Categories(typ) {
		add(c)
	}
	// Unknown categories only appear if validation was bypassed upstream.
	rest := make([]core.Category, 0)
	for c := range sums {
		if !seen[c] {
			rest = append(rest, c)
		}
	}
	slices.Sort(rest)
	for _, c := range rest {
		add(c)
	}
	return out
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	tenths := (part*1000 + total/2) / total
	return float64(tenths) / 10
}
