// Package sqlite stores transactions in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"modernc.org/sqlite"

	"kakeibo/internal/core"
	"kakeibo/internal/store"
)

const backendName = "sqlite"

type Store struct {
	db *sql.DB
}

var _ store.TransactionStore = (*Store)(nil)

// ErrInMemoryPath rejects in-memory databases: migrations run on their own
// connection and would never reach the store's schema.
var ErrInMemoryPath = errors.New("sqlite in-memory databases are not supported")

func isInMemory(dbPath string) bool {
	return dbPath == ":memory:" ||
		strings.HasPrefix(dbPath, "file::memory:") ||
		strings.Contains(dbPath, "mode=memory")
}

// Open creates the database file if needed and applies migrations.
func Open(dbPath string) (*Store, error) {
	if isInMemory(dbPath) {
		return nil, fmt.Errorf("open %q: %w", dbPath, ErrInMemoryPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, amount, content, type, category FROM transactions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", classify(err))
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.Amount, &t.Content, &t.Type, &t.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", classify(err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", classify(err))
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, f core.Fields) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, amount, content, type, category) VALUES (?, ?, ?, ?, ?, ?)`,
		id, f.Date, f.Amount, f.Content, f.Type, f.Category)
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", classify(err))
	}
	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", id, "date", f.Date, "amount", f.Amount)
	return id, nil
}

func (s *Store) Update(ctx context.Context, id string, f core.Fields) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET date = ?, amount = ?, content = ?, type = ?, category = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		f.Date, f.Amount, f.Content, f.Type, f.Category, id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", classify(err))
	}
	return expectOne(res, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", classify(err))
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", classify(err))
	}
	if n == 0 {
		return store.NotFound(backendName, id)
	}
	return nil
}

// classify turns driver errors into store.BackendError.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return &store.BackendError{
			Backend: backendName,
			Code:    strconv.Itoa(se.Code()),
			Message: se.Error(),
			Err:     err,
		}
	}
	return err
}
