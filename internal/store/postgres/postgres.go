// Package postgres implements the store interfaces using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store provides the PostgreSQL-backed implementation of
// store.ProgramRunStore.
type Store struct {
	db *sql.DB
}

// New opens databaseURL, verifies connectivity, and migrates the
// bookkeeping schema before returning. Callers pass the result of
// database/sql's lazy connection pool; Ping surfaces a bad DSN or an
// unreachable server immediately instead of on the first query.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying connection pool, mirroring the teacher's
// controller main.go use of Store.DB() to drive an out-of-band
// migration/metrics call.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
