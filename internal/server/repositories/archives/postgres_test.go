package archives

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate_AssignsIDAndStorageKey(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+archives\s*\(id,\s*name,\s*storage_name,\s*storage_key\)`).
		WithArgs(sqlmock.AnyArg(), "Alice's Archive", "default", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	got, err := repo.Create(context.Background(), &models.Archive{Name: "Alice's Archive", StorageName: "default"})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, StorageKey(got.ID), got.StorageKey)
	assert.True(t, got.CreatedAt.Equal(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+archives`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Archive{Name: "x"})
	assert.ErrorContains(t, err, "db error: db down")
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*name.*FROM\s+archives`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAddMember_Upserts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+archive_members.*ON\s+CONFLICT\s+\(archive_id,\s*account_id\)\s+DO\s+UPDATE\s+SET\s+role\s*=\s*EXCLUDED\.role`).
		WithArgs("arch-1", "acc-1", "owner").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AddMember(context.Background(), models.ArchiveMember{ArchiveID: "arch-1", AccountID: "acc-1", Role: "owner"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMemberRole(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `SELECT\s+role\s+FROM\s+archive_members\s+WHERE\s+archive_id::text\s*=\s*\$1\s+AND\s+account_id::text\s*=\s*\$2`
	mock.ExpectQuery(q).WithArgs("arch-1", "acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("viewer"))
	mock.ExpectQuery(q).WithArgs("arch-1", "acc-2").WillReturnError(sql.ErrNoRows)

	role, err := repo.GetMemberRole(context.Background(), "arch-1", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "viewer", role)

	_, err = repo.GetMemberRole(context.Background(), "arch-1", "acc-2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	a, err := r.Create(ctx, &models.Archive{Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "archives/"+a.ID, a.StorageKey)

	assert.ErrorIs(t, r.AddMember(ctx, models.ArchiveMember{ArchiveID: "nope", AccountID: "x"}), common.ErrorNotFound)

	require.NoError(t, r.AddMember(ctx, models.ArchiveMember{ArchiveID: a.ID, AccountID: "acc", Role: "viewer"}))
	require.NoError(t, r.AddMember(ctx, models.ArchiveMember{ArchiveID: a.ID, AccountID: "acc", Role: "owner"}))
	role, err := r.GetMemberRole(ctx, a.ID, "acc")
	require.NoError(t, err)
	assert.Equal(t, "owner", role)

	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}
