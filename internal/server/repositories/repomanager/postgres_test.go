package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/archives"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/invites"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := m.Accounts(db).(*accounts.PostgresRepository); !ok {
		t.Fatal("Accounts() is not postgres-backed")
	}
	if _, ok := m.Invites(db).(*invites.PostgresRepository); !ok {
		t.Fatal("Invites() is not postgres-backed")
	}
	if _, ok := m.Archives(db).(*archives.PostgresRepository); !ok {
		t.Fatal("Archives() is not postgres-backed")
	}
	if m.Conn() != db {
		t.Fatal("Conn() should return the pool")
	}
}

func TestRunInTx_CommitsAndRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()
	m, _ := NewPostgresRepositoryManager(db)

	mock.ExpectBegin()
	mock.ExpectCommit()
	if err := m.RunInTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error {
		if tx == nil {
			t.Fatal("nil tx")
		}
		return nil
	}); err != nil {
		t.Fatalf("RunInTx error: %v", err)
	}

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	if err := m.RunInTx(context.Background(), func(context.Context, dbx.DBTX) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{db: db}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{db: db}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestMemoryManager_SharesRepositories(t *testing.T) {
	m := NewMemoryRepositoryManager()
	var _ RepositoryManager = m

	if m.Accounts(nil) != m.Accounts(m.Conn()) {
		t.Fatal("expected the same accounts repository")
	}
	called := false
	if err := m.RunInTx(context.Background(), func(ctx context.Context, tx dbx.DBTX) error {
		called = true
		return nil
	}); err != nil || !called {
		t.Fatalf("RunInTx: called=%v err=%v", called, err)
	}
	if err := m.RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
}

func TestOpen_Memory(t *testing.T) {
	m, db, err := Open(context.Background(), MemoryDSN)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if db != nil {
		t.Fatal("memory backend should not open a database")
	}
	if _, ok := m.(*MemoryRepositoryManager); !ok {
		t.Fatalf("unexpected manager %T", m)
	}
}

func TestOpen_MigrationFailureClosesDB(t *testing.T) {
	orig := gooseUpContext
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	_, _, err := Open(context.Background(), "postgres://user:pw@127.0.0.1:1/none?sslmode=disable")
	if err == nil || err.Error() != "db migration error: boom" {
		t.Fatalf("expected migration error, got %v", err)
	}
}
