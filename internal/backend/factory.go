// Package backend selects and opens a storage backend by name.
package backend

import (
	"context"
	"fmt"

	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
	"bilancio/internal/storage/postgres"
	"bilancio/internal/storage/sqlite"
)

const (
	Memory   = "memory"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Open builds the store named by backend. The memory backend needs no
// configuration and loses data on restart.
func Open(ctx context.Context, backend, sqlitePath, postgresDSN string) (storage.Store, error) {
	switch backend {
	case Memory:
		return memory.New(), nil
	case SQLite:
		if sqlitePath == "" {
			return nil, fmt.Errorf("sqlite backend: missing database path")
		}
		return sqlite.Open(sqlitePath)
	case Postgres:
		if postgresDSN == "" {
			return nil, fmt.Errorf("postgres backend: missing dsn")
		}
		return postgres.Open(ctx, postgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
