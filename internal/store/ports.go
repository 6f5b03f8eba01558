// Package store defines the persistence port for transactions.
package store

import (
	"context"

	"kakeibo/internal/core"
)

// TransactionStore is the outbound port to the backing document store.
// Implementations assign ids on Create and never filter or page on ListAll.
type TransactionStore interface {
	ListAll(ctx context.Context) ([]core.Transaction, error)
	Create(ctx context.Context, f core.Fields) (id string, err error)
	Update(ctx context.Context, id string, f core.Fields) error
	Delete(ctx context.Context, id string) error
}

// Closer is implemented by stores holding connections.
type Closer interface {
	Close() error
}
