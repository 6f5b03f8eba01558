package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/store"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "kakeibo.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	salary := core.Fields{Date: "2025-08-01", Amount: 3000, Content: "pay", Type: core.Income, Category: "salary"}
	bus := core.Fields{Date: "2025-08-02", Amount: 500, Content: "bus", Type: core.Expense, Category: "transport"}

	id1, err := s.Create(ctx, salary)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id2, err := s.Create(ctx, bus)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0] != salary.WithID(id1) || all[1] != bus.WithID(id2) {
		t.Fatalf("unexpected rows: %+v", all)
	}

	bus.Amount = 700
	if err := s.Update(ctx, id2, bus); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.Delete(ctx, id1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = s.ListAll(ctx)
	if len(all) != 1 || all[0].Amount != 700 {
		t.Fatalf("unexpected rows after mutation: %+v", all)
	}

	if err := s.Delete(ctx, id1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.Update(ctx, "missing", bus); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSQLiteConstraintIsBackendError(t *testing.T) {
	s := openTemp(t)
	_, err := s.Create(context.Background(), core.Fields{Date: "2025-08-01", Amount: 0, Content: "x", Type: core.Expense, Category: "food"})
	if err == nil {
		t.Fatalf("expected check constraint failure")
	}
	kind, be := store.Classify(err)
	if kind != store.KindBackend || be.Backend != "sqlite" || be.Code == "" {
		t.Fatalf("unexpected classification %v %+v", kind, be)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kakeibo.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		s.Close()
	}
}

func TestOpenRejectsInMemoryPaths(t *testing.T) {
	for _, path := range []string{":memory:", "file::memory:?cache=shared", "file:kakeibo?mode=memory"} {
		if _, err := Open(path); !errors.Is(err, ErrInMemoryPath) {
			t.Errorf("Open(%q) = %v, want ErrInMemoryPath", path, err)
		}
	}
}
