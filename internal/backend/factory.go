package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/store"
	"kakeibo/internal/store/memory"
	"kakeibo/internal/store/mongo"
	"kakeibo/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		s       store.TransactionStore
		closers []func() error
		err     error
	)
	switch config.Type {
	case MemoryBackend:
		s, err = f.createMemoryStore(config)
	case SQLiteBackend:
		var db *sqlite.Store
		db, err = sqlite.Open(config.SQLiteDBPath)
		if err == nil {
			s = db
			closers = append(closers, db.Close)
			f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		}
	case MongoBackend:
		var m *mongo.Store
		m, err = mongo.Connect(ctx, config.MongoURI, config.MongoDatabase, config.MongoCollection)
		if err == nil {
			s = m
			closers = append(closers, m.Close)
			f.logger.Info("Initialized MongoDB backend",
				"database", config.MongoDatabase,
				"collection", config.MongoCollection)
		}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", config.Type, err)
	}

	// AMQP is optional; the service runs without change events.
	var events *amqp.Client
	if config.AMQPURL != "" {
		events, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			events = nil
		} else {
			closers = append(closers, events.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Store:   s,
		Events:  events,
		Cleanup: cleanup(closers),
	}, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (store.TransactionStore, error) {
	s, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return s, nil
}

// cleanup closes in reverse order of creation and joins the errors.
func cleanup(closers []func() error) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
