package finance

import (
	"slices"

	"github.com/dustin/go-humanize"

	"kakeibo/internal/core"
)

// CalendarEvent is the per-day cell content of the month calendar.
type CalendarEvent struct {
	Start   core.Date `json:"start"`
	Income  string    `json:"income"`
	Expense string    `json:"expense"`
	Balance string    `json:"balance"`
}

// DailySeries feeds the daily bar chart: labels ascending, with income and
// expense values at the same index.
type DailySeries struct {
	Labels  []core.Date `json:"labels"`
	Income  []int64     `json:"income"`
	Expense []int64     `json:"expense"`
}

// FormatAmount renders a whole amount with thousands separators, e.g. "3,000".
func FormatAmount(v int64) string {
	return humanize.Comma(v)
}

// CalendarEvents converts per-day balances into calendar cells sorted by day.
func CalendarEvents(daily map[core.Date]core.Balance) []CalendarEvent {
	days := sortedDays(daily)
	out := make([]CalendarEvent, 0, len(days))
	for _, d := range days {
		b := daily[d]
		out = append(out, CalendarEvent{
			Start:   d,
			Income:  FormatAmount(b.Income),
			Expense: FormatAmount(b.Expense),
			Balance: FormatAmount(b.Balance),
		})
	}
	return out
}

// Daily builds the bar chart series for txs.
func Daily(txs []core.Transaction) DailySeries {
	daily := AggregateByDay(txs)
	days := sortedDays(daily)
	s := DailySeries{
		Labels:  days,
		Income:  make([]int64, len(days)),
		Expense: make([]int64, len(days)),
	}
	for i, d := range days {
		s.Income[i] = daily[d].Income
		s.Expense[i] = daily[d].Expense
	}
	return s
}

func sortedDays(daily map[core.Date]core.Balance) []core.Date {
	days := make([]core.Date, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	slices.Sort(days)
	return days
}
