package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/store"
)

// Mirror is the outbound copy of the ledger kept by the worker.
type Mirror interface {
	Upsert(ctx context.Context, t core.Transaction) error
	Remove(ctx context.Context, id string) error
}

// IDLister is implemented by mirrors that can enumerate their rows.
type IDLister interface {
	IDs(ctx context.Context) ([]string, error)
}

// MirrorWorker applies transaction events to a Mirror.
type MirrorWorker struct {
	mirror Mirror
	store  store.TransactionStore
}

func NewMirrorWorker(mirror Mirror, s store.TransactionStore) *MirrorWorker {
	return &MirrorWorker{mirror: mirror, store: s}
}

// HandleEvent applies one event. A returned error makes the consumer requeue it.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event", "op", ev.Op, "id", ev.ID)

	switch ev.Op {
	case amqp.OpCreated, amqp.OpUpdated:
		if ev.Transaction == nil {
			return fmt.Errorf("event %s for %s carries no transaction", ev.Op, ev.ID)
		}
		if err := w.mirror.Upsert(ctx, *ev.Transaction); err != nil {
			return fmt.Errorf("mirror upsert %s: %w", ev.ID, err)
		}
	case amqp.OpDeleted:
		if err := w.mirror.Remove(ctx, ev.ID); err != nil {
			return fmt.Errorf("mirror remove %s: %w", ev.ID, err)
		}
	default:
		return fmt.Errorf("unknown event op %q", ev.Op)
	}
	return nil
}

// ResyncResult counts what Resync did.
type ResyncResult struct {
	Upserted int
	Removed  int
}

// Resync copies the whole store into the mirror and, when the mirror can
// list its rows, removes rows whose ids no longer exist.
func (w *MirrorWorker) Resync(ctx context.Context) (ResyncResult, error) {
	var res ResyncResult
	if w.store == nil {
		return res, fmt.Errorf("resync: no store configured")
	}
	txs, err := w.store.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("resync: list store: %w", err)
	}

	live := make(map[string]struct{}, len(txs))
	for _, t := range txs {
		if err := w.mirror.Upsert(ctx, t); err != nil {
			return res, fmt.Errorf("resync: upsert %s: %w", t.ID, err)
		}
		live[t.ID] = struct{}{}
		res.Upserted++
	}

	if lister, ok := w.mirror.(IDLister); ok {
		ids, err := lister.IDs(ctx)
		if err != nil {
			return res, fmt.Errorf("resync: list mirror: %w", err)
		}
		for _, id := range ids {
			if _, ok := live[id]; ok {
				continue
			}
			if err := w.mirror.Remove(ctx, id); err != nil {
				return res, fmt.Errorf("resync: remove %s: %w", id, err)
			}
			res.Removed++
		}
	}

	slog.InfoContext(ctx, "Mirror resync completed", "upserted", res.Upserted, "removed", res.Removed)
	return res, nil
}
