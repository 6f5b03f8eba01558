package services

import (
	"sync"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
	"kakeibo/internal/finance"
	"kakeibo/internal/table"
)

// MonthReport bundles every derived view of one month.
type MonthReport struct {
	Month        finance.MonthKey        `json:"month"`
	Balance      core.Balance            `json:"balance"`
	Transactions []core.Transaction      `json:"transactions"`
	Calendar     []finance.CalendarEvent `json:"calendar"`
	Daily        finance.DailySeries     `json:"daily"`
	Expense      []finance.CategoryTotal `json:"expenseCategories"`
	Income       []finance.CategoryTotal `json:"incomeCategories"`
}

// BuildMonthReport derives the report of month from the full collection.
func BuildMonthReport(all []core.Transaction, month finance.MonthKey) MonthReport {
	txs := finance.FilterByMonth(all, month)
	return MonthReport{
		Month:        month,
		Balance:      finance.Aggregate(txs),
		Transactions: txs,
		Calendar:     finance.CalendarEvents(finance.AggregateByDay(txs)),
		Daily:        finance.Daily(txs),
		Expense:      finance.CategoryShares(txs, core.Expense),
		Income:       finance.CategoryShares(txs, core.Income),
	}
}

// Categories returns the shares of typ.
func (r MonthReport) Categories(typ core.Type) []finance.CategoryTotal {
	if typ == core.Income {
		return r.Income
	}
	return r.Expense
}

// Table returns one page of the month table.
func (r MonthReport) Table(page, pageSize int) table.Page {
	return table.Build(r.Transactions, page, pageSize)
}

// DayReport is the daily summary panel.
type DayReport struct {
	Day          core.Date          `json:"day"`
	Balance      core.Balance       `json:"balance"`
	Transactions []core.Transaction `json:"transactions"`
}

// Reports serves month reports from the ledger through an LRU cache.
type Reports struct {
	ledger *Ledger
	cache  *cache.LRUCache[MonthReport]

	// mu orders cache inserts against invalidation.
	mu sync.Mutex
	// built runs between building a report and caching it.
	built func()
}

// NewReports wires a report cache to ledger. Mutations invalidate the
// months they touch; call Invalidate from the ledger change hook.
func NewReports(ledger *Ledger, size int, ttl time.Duration) *Reports {
	return &Reports{ledger: ledger, cache: cache.NewLRUCache[MonthReport](size, ttl)}
}

// Cache exposes the underlying cache for periodic cleanup.
func (r *Reports) Cache() *cache.LRUCache[MonthReport] { return r.cache }

// Month returns the report of month. A report built from a snapshot that a
// mutation has since replaced is returned but not cached.
func (r *Reports) Month(month finance.MonthKey) MonthReport {
	key := month.String()
	if rep, ok := r.cache.Get(key); ok {
		return rep
	}
	all, version := r.ledger.Snapshot()
	rep := BuildMonthReport(all, month)
	if r.built != nil {
		r.built()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ledger.Version() == version {
		r.cache.Set(key, rep)
	}
	return rep
}

func (r *Reports) Day(day core.Date) DayReport {
	txs := r.ledger.Day(day)
	return DayReport{Day: day, Balance: finance.Aggregate(txs), Transactions: txs}
}

// Invalidate drops the cached months, or everything when none are given.
func (r *Reports) Invalidate(months ...finance.MonthKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(months) == 0 {
		r.cache.Purge()
		return
	}
	for _, m := range months {
		r.cache.Delete(m.String())
	}
}
