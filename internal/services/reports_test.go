package services

import (
	"context"
	"testing"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/finance"
)

func TestReportsMonthAndInvalidation(t *testing.T) {
	var reports *Reports
	l := newTestLedger(seeded(), WithChangeHook(func(m ...finance.MonthKey) { reports.Invalidate(m...) }))
	reports = NewReports(l, 8, time.Minute)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	rep := reports.Month("2025-08")
	if rep.Balance != (core.Balance{Income: 3000, Expense: 1700, Balance: 1300}) {
		t.Fatalf("balance = %+v", rep.Balance)
	}
	if len(rep.Calendar) != 2 || rep.Calendar[0].Income != "3,000" {
		t.Fatalf("calendar = %+v", rep.Calendar)
	}
	if len(rep.Categories(core.Expense)) != 2 || len(rep.Categories(core.Income)) != 1 {
		t.Fatalf("categories = %+v / %+v", rep.Expense, rep.Income)
	}
	if reports.Cache().Size() != 1 {
		t.Fatal("report should be cached")
	}

	if _, err := l.Create(context.Background(), fields("2025-08-20", core.Expense, 300, "food")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if reports.Cache().Size() != 0 {
		t.Fatal("mutation should invalidate the month")
	}
	if got := reports.Month("2025-08").Balance.Expense; got != 2000 {
		t.Fatalf("expense after create = %d, want 2000", got)
	}

	page := reports.Month("2025-08").Table(0, 2)
	if page.Total != 4 || page.PageCount != 2 || page.Rows[0].Date != "2025-08-20" {
		t.Fatalf("unexpected table page %+v", page)
	}

	day := reports.Day("2025-08-01")
	if day.Balance.Balance != 1800 || len(day.Transactions) != 2 {
		t.Fatalf("unexpected day report %+v", day)
	}
}

func TestReportsDoesNotCacheReportOvertakenByMutation(t *testing.T) {
	var reports *Reports
	l := newTestLedger(seeded(), WithChangeHook(func(m ...finance.MonthKey) { reports.Invalidate(m...) }))
	reports = NewReports(l, 8, time.Minute)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// A create lands after the snapshot was taken but before the report is cached.
	reports.built = func() {
		reports.built = nil
		if _, err := l.Create(context.Background(), fields("2025-08-20", core.Expense, 300, "food")); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if got := reports.Month("2025-08").Balance.Expense; got != 1700 {
		t.Fatalf("report from the snapshot = %d, want 1700", got)
	}
	if reports.Cache().Size() != 0 {
		t.Fatal("overtaken report must not be cached")
	}
	if got := reports.Month("2025-08").Balance.Expense; got != 2000 {
		t.Fatalf("expense after create = %d, want 2000", got)
	}
	if reports.Cache().Size() != 1 {
		t.Fatal("fresh report should be cached")
	}
}

func TestLedgerVersionAdvancesOnMutation(t *testing.T) {
	l := newTestLedger(seeded())
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, v := l.Snapshot()
	if _, err := l.Create(context.Background(), fields("2025-08-20", core.Expense, 300, "food")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Version() == v {
		t.Fatal("create must advance the version")
	}
}
