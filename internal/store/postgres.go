package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using a Postgres documents table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and creates the documents table if needed
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `create table if not exists documents (
		name text primary key,
		body text not null,
		updated_at timestamptz not null default now()
	)`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// Get retrieves a document body by name
func (s *PostgresStore) Get(ctx context.Context, name string) ([]byte, error) {
	var body string
	err := s.pool.QueryRow(ctx, `select body from documents where name = $1`, name).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return []byte(body), nil
}

// Put upserts a document body
func (s *PostgresStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.pool.Exec(ctx,
		`insert into documents (name, body, updated_at) values ($1, $2, now())
		 on conflict (name) do update set body = excluded.body, updated_at = excluded.updated_at`,
		name, string(data))
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
