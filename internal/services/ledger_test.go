package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"testing"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/finance"
	"kakeibo/internal/log"
	"kakeibo/internal/store"
)

// fakeStore is a scripted store.TransactionStore.
type fakeStore struct {
	mu        sync.Mutex
	items     []core.Transaction
	next      int
	listErr   error
	createErr error
	updateErr error
	// deleteErrs fails Delete for the listed ids.
	deleteErrs map[string]error
	calls      []string
}

func (f *fakeStore) ListAll(context.Context) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.items), nil
}

func (f *fakeStore) Create(_ context.Context, fl core.Fields) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return "", f.createErr
	}
	f.next++
	id := fmt.Sprintf("id-%d", f.next)
	f.items = append(f.items, fl.WithID(id))
	return id, nil
}

func (f *fakeStore) Update(_ context.Context, id string, fl core.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update "+id)
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i] = fl.WithID(id)
			return nil
		}
	}
	return store.NotFound("fake", id)
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete "+id)
	if err := f.deleteErrs[id]; err != nil {
		return err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = slices.Delete(f.items, i, i+1)
			return nil
		}
	}
	return store.NotFound("fake", id)
}

type fakePublisher struct {
	events []*amqp.TransactionEvent
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, ev *amqp.TransactionEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func fields(date core.Date, typ core.Type, amount int64, cat core.Category) core.Fields {
	return core.Fields{Date: date, Amount: amount, Content: "entry", Type: typ, Category: cat}
}

func seeded() *fakeStore {
	return &fakeStore{items: []core.Transaction{
		fields("2025-08-01", core.Income, 3000, "salary").WithID("a"),
		fields("2025-08-01", core.Expense, 1200, "food").WithID("b"),
		fields("2025-08-02", core.Expense, 500, "transport").WithID("c"),
	}}
}

func newTestLedger(s store.TransactionStore, opts ...Option) *Ledger {
	return NewLedger(s, append([]Option{WithLogger(log.Discard())}, opts...)...)
}

func ids(txs []core.Transaction) []string {
	out := []string{}
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}

func TestLedgerLoadScenario(t *testing.T) {
	l := newTestLedger(seeded())
	if l.Loaded() || !errors.Is(l.Ready(), ErrNotLoaded) {
		t.Fatal("ledger should not be loaded before Load")
	}
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !l.Loaded() || len(l.All()) != 3 {
		t.Fatalf("unexpected ledger state loaded=%v items=%d", l.Loaded(), len(l.All()))
	}

	month := l.Month("2025-08")
	if got := finance.Aggregate(month); got != (core.Balance{Income: 3000, Expense: 1700, Balance: 1300}) {
		t.Fatalf("month balance = %+v", got)
	}
	if got := ids(l.Day("2025-08-01")); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("day ids = %v", got)
	}
}

func TestLedgerLoadFailureLeavesEmpty(t *testing.T) {
	s := seeded()
	l := newTestLedger(s)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	s.listErr = &store.BackendError{Backend: "fake", Code: "unavailable"}
	err := l.Load(context.Background())
	if kind, _ := store.Classify(err); kind != store.KindBackend {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
	if l.Loaded() || l.Ready() == nil || len(l.All()) != 0 {
		t.Fatalf("failed load must leave an empty, unloaded ledger")
	}
}

func TestLedgerCreate(t *testing.T) {
	s := seeded()
	pub := &fakePublisher{}
	var touched []finance.MonthKey
	l := newTestLedger(s, WithPublisher(pub), WithChangeHook(func(m ...finance.MonthKey) { touched = append(touched, m...) }))
	_ = l.Load(context.Background())
	touched = nil

	tx, err := l.Create(context.Background(), fields("2025-09-03", core.Expense, 800, "social"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.ID != "id-1" {
		t.Fatalf("unexpected id %q", tx.ID)
	}
	if got, ok := l.Get("id-1"); !ok || got != tx {
		t.Fatalf("created transaction not in ledger")
	}
	if len(pub.events) != 1 || pub.events[0].Op != amqp.OpCreated || pub.events[0].ID != "id-1" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	if !reflect.DeepEqual(touched, []finance.MonthKey{"2025-09"}) {
		t.Fatalf("touched months = %v", touched)
	}

	if _, err := l.Create(context.Background(), fields("2025-09-03", core.Expense, 0, "social")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := len(s.calls); s.calls[n-1] != "create" || len(l.All()) != 4 {
		t.Fatalf("invalid fields must not reach the store: %v", s.calls)
	}
}

func TestLedgerMutationFailuresLeaveStateUnchanged(t *testing.T) {
	s := seeded()
	pub := &fakePublisher{}
	l := newTestLedger(s, WithPublisher(pub))
	_ = l.Load(context.Background())
	before := l.All()

	s.createErr = errors.New("quota exceeded")
	if _, err := l.Create(context.Background(), fields("2025-08-05", core.Expense, 10, "food")); err == nil {
		t.Fatal("expected create error")
	}
	s.updateErr = &store.BackendError{Backend: "fake", Code: "permission-denied"}
	if _, err := l.Update(context.Background(), "b", fields("2025-08-05", core.Expense, 10, "food")); err == nil {
		t.Fatal("expected update error")
	}
	s.deleteErrs = map[string]error{"c": errors.New("timeout")}
	if err := l.Delete(context.Background(), "c"); err == nil {
		t.Fatal("expected delete error")
	}

	if !reflect.DeepEqual(l.All(), before) {
		t.Fatalf("ledger changed after failed mutations: %+v", l.All())
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed mutations must not publish, got %d events", len(pub.events))
	}
}

func TestLedgerUpdateAndDelete(t *testing.T) {
	s := seeded()
	var touched []finance.MonthKey
	l := newTestLedger(s, WithChangeHook(func(m ...finance.MonthKey) { touched = append(touched, m...) }))
	_ = l.Load(context.Background())
	touched = nil

	moved := fields("2025-07-31", core.Expense, 1500, "food")
	tx, err := l.Update(context.Background(), "b", moved)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, _ := l.Get("b"); got != tx || got.Amount != 1500 {
		t.Fatalf("update not applied: %+v", got)
	}
	if got := ids(l.All()); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("update must patch in place, order = %v", got)
	}
	if !reflect.DeepEqual(touched, []finance.MonthKey{"2025-08", "2025-07"}) {
		t.Fatalf("touched months = %v", touched)
	}

	if err := l.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := l.Get("a"); ok {
		t.Fatal("deleted transaction still present")
	}

	err = l.Delete(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLedgerBulkDeleteStopsAtFirstFailure(t *testing.T) {
	s := seeded()
	s.deleteErrs = map[string]error{"b": errors.New("network down")}
	pub := &fakePublisher{}
	l := newTestLedger(s, WithPublisher(pub))
	_ = l.Load(context.Background())

	res, err := l.BulkDelete(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error from failing delete")
	}
	want := BulkDeleteResult{Deleted: []string{"a"}, Failed: "b", Remaining: []string{"c"}}
	if !reflect.DeepEqual(res, want) {
		t.Fatalf("result = %+v, want %+v", res, want)
	}
	// Local state mirrors the store exactly.
	storeItems, _ := s.ListAll(context.Background())
	if !reflect.DeepEqual(ids(l.All()), ids(storeItems)) {
		t.Fatalf("ledger %v diverged from store %v", ids(l.All()), ids(storeItems))
	}
	if len(pub.events) != 1 || pub.events[0].ID != "a" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	if slices.Contains(s.calls, "delete c") {
		t.Fatal("ids after the failure must not be attempted")
	}
}

func TestLedgerBulkDeleteAll(t *testing.T) {
	l := newTestLedger(seeded())
	_ = l.Load(context.Background())

	res, err := l.BulkDelete(context.Background(), []string{"c", "a"})
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if !reflect.DeepEqual(res.Deleted, []string{"c", "a"}) || res.Failed != "" || len(res.Remaining) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := ids(l.All()); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("remaining = %v", got)
	}
}

func TestLedgerPublishFailureIsNotReturned(t *testing.T) {
	l := newTestLedger(seeded(), WithPublisher(&fakePublisher{err: errors.New("broker down")}))
	_ = l.Load(context.Background())
	if _, err := l.Create(context.Background(), fields("2025-08-03", core.Expense, 10, "food")); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
	if len(l.All()) != 4 {
		t.Fatal("create should still be applied")
	}
}

func TestLedgerReadsReturnCopies(t *testing.T) {
	l := newTestLedger(seeded())
	_ = l.Load(context.Background())
	all := l.All()
	all[0].Amount = 1
	month := l.Month("2025-08")
	month[1].Amount = 1
	if got, _ := l.Get("a"); got.Amount != 3000 {
		t.Fatal("All leaked the internal slice")
	}
	if got, _ := l.Get("b"); got.Amount != 1200 {
		t.Fatal("Month leaked the internal slice")
	}
}

func TestLedgerConcurrentAccess(t *testing.T) {
	l := newTestLedger(&fakeStore{})
	_ = l.Load(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = l.Create(context.Background(), fields("2025-08-01", core.Expense, 10, "food"))
		}()
		go func() {
			defer wg.Done()
			_ = finance.Aggregate(l.Month("2025-08"))
		}()
	}
	wg.Wait()
	if got := finance.Aggregate(l.All()); got.Expense != 200 {
		t.Fatalf("expense total = %d, want 200", got.Expense)
	}
}
