package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"

	"kakeibo/internal/core"
	"kakeibo/internal/store"
)

const backendName = "memory"

// Store keeps transactions in process memory, in insertion order.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

var _ store.TransactionStore = (*Store)(nil)

func New(seed ...core.Transaction) *Store {
	return &Store{items: slices.Clone(seed)}
}

// NewFromFile seeds the store from a JSON array of transactions.
// A missing file yields an empty store. Entries without an id get one; an
// invalid entry rejects the whole file.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.Transaction
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i := range seed {
		if seed[i].ID == "" {
			seed[i].ID = uuid.NewString()
		}
		if err := seed[i].Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}
	return New(seed...), nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) Create(_ context.Context, f core.Fields) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, f.WithID(id))
	return id, nil
}

func (s *Store) Update(_ context.Context, id string, f core.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return store.NotFound(backendName, id)
	}
	s.items[i] = f.WithID(id)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return store.NotFound(backendName, id)
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.items, func(t core.Transaction) bool { return t.ID == id })
}
