package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/hours-bot-go/internal/config"
)

// ErrNotFound is returned by Get when a document has never been written
var ErrNotFound = errors.New("document not found")

// Store persists named documents. Every Put replaces the whole document atomically.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// PersistenceError reports a failed document write or read
type PersistenceError struct {
	Op       string
	Document string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s document %s: %v", e.Op, e.Document, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Open creates the store backend selected by cfg.Store.Driver
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case config.DriverFile:
		return NewFileStore(cfg.Store.Dir)
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverBolt:
		return NewBoltStore(cfg.Store.BoltPath)
	case config.DriverMySQL:
		return NewMySQLStore(&cfg.DB)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.Store.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
