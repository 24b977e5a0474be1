package repomanager

import (
	"context"
	"database/sql"
	"fmt"
)

// MemoryDSN selects the in-memory backend.
const MemoryDSN = "memory"

// Open connects to dsn, applies migrations and returns a manager. The
// returned *sql.DB is nil for the in-memory backend.
func Open(ctx context.Context, dsn string) (RepositoryManager, *sql.DB, error) {
	if dsn == MemoryDSN {
		return NewMemoryRepositoryManager(), nil, nil
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db migration error: %w", err)
	}
	return m, db, nil
}
