package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/finance"
	"kakeibo/internal/log"
	"kakeibo/internal/store"
)

// ErrNotLoaded is reported by Ready before the initial load succeeded.
var ErrNotLoaded = errors.New("ledger not loaded")

// EventPublisher announces confirmed mutations.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// Ledger is the in-memory collection of transactions mirrored from the
// store. Mutations reach the store first; the collection is patched only
// after the store confirmed them.
type Ledger struct {
	store     store.TransactionStore
	publisher EventPublisher
	logger    *log.Logger
	records   *log.StructuredLogger

	mu     sync.RWMutex
	items  []core.Transaction
	loaded bool
	// version counts changes to items.
	version uint64

	// onChange is called with the months touched by a mutation.
	onChange func(months ...finance.MonthKey)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher publishes change events after each mutation.
func WithPublisher(p EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithChangeHook registers fn to be told which months a mutation touched.
// No months means the whole collection changed.
func WithChangeHook(fn func(months ...finance.MonthKey)) Option {
	return func(l *Ledger) { l.onChange = fn }
}

func NewLedger(s store.TransactionStore, opts ...Option) *Ledger {
	l := &Ledger{store: s, items: []core.Transaction{}}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.FromContext(context.Background())
	}
	l.logger = l.logger.WithComponent(log.ComponentLedger)
	l.records = log.NewStructuredLogger(l.logger)
	return l
}

// Load replaces the collection with a full scan of the store. On failure the
// collection is left empty and not marked loaded.
func (l *Ledger) Load(ctx context.Context) error {
	txs, err := l.store.ListAll(ctx)
	if err != nil {
		l.mu.Lock()
		l.items = []core.Transaction{}
		l.loaded = false
		l.version++
		l.mu.Unlock()
		l.records.LogStoreFailure(ctx, log.OpLoad, err, nil)
		return fmt.Errorf("load transactions: %w", err)
	}

	l.mu.Lock()
	l.items = slices.Clone(txs)
	if l.items == nil {
		l.items = []core.Transaction{}
	}
	l.loaded = true
	l.version++
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Ledger loaded", log.FieldCount, len(txs))
	l.changed()
	return nil
}

// Loaded reports whether the initial load succeeded.
func (l *Ledger) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Ready returns ErrNotLoaded until the initial load succeeded.
func (l *Ledger) Ready() error {
	if !l.Loaded() {
		return ErrNotLoaded
	}
	return nil
}

// All returns a copy of the collection in store order.
func (l *Ledger) All() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Snapshot returns a copy of the collection with the version it was taken at.
// The version changes before the change hook runs.
func (l *Ledger) Snapshot() ([]core.Transaction, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items), l.version
}

// Version returns the current change counter.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Month returns the transactions of month in store order.
func (l *Ledger) Month(month finance.MonthKey) []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return finance.FilterByMonth(l.items, month)
}

// Day returns the transactions dated day in store order.
func (l *Ledger) Day(day core.Date) []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return finance.FilterByDay(l.items, day)
}

// Get returns the transaction with id.
func (l *Ledger) Get(id string) (core.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.index(id)
	if i < 0 {
		return core.Transaction{}, false
	}
	return l.items[i], true
}

// Create validates f, stores it and appends the stored transaction.
func (l *Ledger) Create(ctx context.Context, f core.Fields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := l.store.Create(ctx, f)
	if err != nil {
		l.records.LogStoreFailure(ctx, log.OpCreate, err, log.NewFields().WithTransaction("", string(f.Type), string(f.Category), f.Amount))
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	tx := f.WithID(id)
	l.mu.Lock()
	l.items = append(l.items, tx)
	l.version++
	l.mu.Unlock()

	l.records.LogMutation(ctx, log.OpCreate, id, string(f.Type), string(f.Category), f.Amount)
	l.publish(ctx, amqp.NewUpsertEvent(amqp.OpCreated, tx))
	l.changed(finance.MonthOf(tx.Date))
	return tx, nil
}

// Update replaces the fields of id and patches the entry in place.
func (l *Ledger) Update(ctx context.Context, id string, f core.Fields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	prev, known := l.Get(id)

	if err := l.store.Update(ctx, id, f); err != nil {
		l.records.LogStoreFailure(ctx, log.OpUpdate, err, log.NewFields().WithTransaction(id, string(f.Type), string(f.Category), f.Amount))
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}

	tx := f.WithID(id)
	l.mu.Lock()
	if i := l.index(id); i >= 0 {
		l.items[i] = tx
	} else {
		l.items = append(l.items, tx)
	}
	l.version++
	l.mu.Unlock()

	l.records.LogMutation(ctx, log.OpUpdate, id, string(f.Type), string(f.Category), f.Amount)
	l.publish(ctx, amqp.NewUpsertEvent(amqp.OpUpdated, tx))
	if known {
		l.changed(finance.MonthOf(prev.Date), finance.MonthOf(tx.Date))
	} else {
		l.changed(finance.MonthOf(tx.Date))
	}
	return tx, nil
}

// Delete removes id from the store and then from the collection.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	prev, known := l.Get(id)

	if err := l.store.Delete(ctx, id); err != nil {
		l.records.LogStoreFailure(ctx, log.OpDelete, err, log.NewFields().WithTransaction(id, string(prev.Type), string(prev.Category), prev.Amount))
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	l.mu.Lock()
	if i := l.index(id); i >= 0 {
		l.items = slices.Delete(l.items, i, i+1)
	}
	l.version++
	l.mu.Unlock()

	l.records.LogMutation(ctx, log.OpDelete, id, string(prev.Type), string(prev.Category), prev.Amount)
	l.publish(ctx, amqp.NewDeleteEvent(id))
	if known {
		l.changed(finance.MonthOf(prev.Date))
	} else {
		l.changed()
	}
	return nil
}

// BulkDeleteResult reports the outcome of BulkDelete.
type BulkDeleteResult struct {
	Deleted []string `json:"deleted"`
	// Failed is the id whose delete failed, empty when all succeeded.
	Failed string `json:"failed,omitempty"`
	// Remaining are the ids not attempted after the failure.
	Remaining []string `json:"remaining"`
}

// BulkDelete deletes ids one at a time, in order, dropping each from the
// collection as soon as the store confirms it. It stops at the first
// failure and returns that error together with the partial result.
func (l *Ledger) BulkDelete(ctx context.Context, ids []string) (BulkDeleteResult, error) {
	res := BulkDeleteResult{Deleted: []string{}, Remaining: []string{}}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			res.Remaining = slices.Clone(ids[i:])
			return res, err
		}
		if err := l.Delete(ctx, id); err != nil {
			res.Failed = id
			res.Remaining = slices.Clone(ids[i+1:])
			l.logger.WarnContext(ctx, "Bulk delete stopped",
				log.FieldOperation, log.OpBulkDelete,
				log.FieldCount, len(res.Deleted),
				log.FieldID, id)
			return res, err
		}
		res.Deleted = append(res.Deleted, id)
	}
	return res, nil
}

func (l *Ledger) publish(ctx context.Context, ev *amqp.TransactionEvent) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishEvent(ctx, ev); err != nil {
		// The store already holds the change.
		l.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldOperation, log.OpPublish,
			log.FieldID, ev.ID,
			log.FieldError, err)
	}
}

func (l *Ledger) changed(months ...finance.MonthKey) {
	if l.onChange != nil {
		l.onChange(months...)
	}
}

// index must be called with mu held.
func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.items, func(t core.Transaction) bool { return t.ID == id })
}
