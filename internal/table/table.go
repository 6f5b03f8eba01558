// Package table builds the sorted, paged and selectable transaction table.
package table

import (
	"slices"
	"strings"

	"kakeibo/internal/core"
)

// SortDescendingByDate returns a copy of txs with the most recent date first.
// Entries sharing a date keep their input order.
func SortDescendingByDate(txs []core.Transaction) []core.Transaction {
	out := slices.Clone(txs)
	if out == nil {
		out = make([]core.Transaction, 0)
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return strings.Compare(string(b.Date), string(a.Date))
	})
	return out
}

// Paginate returns the rows of page (zero based). Out of range pages, a
// negative page or a non-positive size all yield an empty page.
func Paginate(sorted []core.Transaction, page, pageSize int) []core.Transaction {
	if page < 0 || page >= PageCount(len(sorted), pageSize) {
		return []core.Transaction{}
	}
	start := page * pageSize
	end := min(start+pageSize, len(sorted))
	return slices.Clone(sorted[start:end])
}

// PageCount is the number of pages needed for n rows.
func PageCount(n, pageSize int) int {
	if n <= 0 || pageSize <= 0 {
		return 0
	}
	pages := n / pageSize
	if n%pageSize != 0 {
		pages++
	}
	return pages
}

// EmptyRows is the number of filler rows that keep the last page at full
// height. The first page and pages past the end are never padded.
func EmptyRows(n, page, pageSize int) int {
	if page <= 0 || page >= PageCount(n, pageSize) {
		return 0
	}
	return max(0, (page+1)*pageSize-n)
}

// Page is one rendered table page.
type Page struct {
	Rows      []core.Transaction `json:"rows"`
	Page      int                `json:"page"`
	PageSize  int                `json:"pageSize"`
	PageCount int                `json:"pageCount"`
	Total     int                `json:"total"`
	EmptyRows int                `json:"emptyRows"`
}

// Build sorts txs and cuts out the requested page.
func Build(txs []core.Transaction, page, pageSize int) Page {
	sorted := SortDescendingByDate(txs)
	return Page{
		Rows:      Paginate(sorted, page, pageSize),
		Page:      page,
		PageSize:  pageSize,
		PageCount: PageCount(len(sorted), pageSize),
		Total:     len(sorted),
		EmptyRows: EmptyRows(len(sorted), page, pageSize),
	}
}
