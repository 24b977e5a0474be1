package invites

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var columns = []string{"token", "invited_by", "email", "kind", "resource_id", "role", "created_at", "expires_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+invites\s*\(token,\s*invited_by,\s*email,\s*kind,\s*resource_id,\s*role,\s*expires_at\)\s*VALUES\s*\(\$1,.*\$7\)\s*RETURNING\s+created_at\s*$`
	now := time.Now().UTC()
	exp := now.Add(time.Hour)
	inviter := "acc-1"

	mock.ExpectQuery(q).
		WithArgs("tok", inviter, "b@example.com", "new_account", nil, "viewer", exp).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	got, err := repo.Create(context.Background(), &models.Invite{
		Token:     "tok",
		InvitedBy: &inviter,
		Email:     "b@example.com",
		Scope:     models.InviteScope{Kind: models.InviteNewAccount},
		Role:      "viewer",
		ExpiresAt: &exp,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at not filled: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_ScansNullableColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)^SELECT\s+token,.*FROM\s+invites\s+WHERE\s+token\s*=\s*\$1$`).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("tok", nil, "", "existing_account_link", "arch-1", "crawler", now, nil))

	got, err := repo.Get(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.InvitedBy != nil || got.ExpiresAt != nil {
		t.Fatalf("expected nil inviter and expiry, got %+v", got)
	}
	if got.Scope.Kind != models.InviteExistingAccountLink || got.Scope.ResourceID == nil || *got.Scope.ResourceID != "arch-1" {
		t.Fatalf("unexpected scope: %+v", got.Scope)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+invites`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestConsume_DeletesAndReturnsRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*DELETE\s+FROM\s+invites\s+WHERE\s+token\s*=\s*\$1\s+AND\s+\(expires_at\s+IS\s+NULL\s+OR\s+expires_at\s*>\s*\$2\)\s+RETURNING\s+token,.*expires_at$`
	now := time.Now().UTC()
	inviter := "acc-1"
	mock.ExpectQuery(q).
		WithArgs("tok", now).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("tok", inviter, "b@example.com", "new_account", nil, "viewer", now, now.Add(time.Hour)))

	got, err := repo.Consume(context.Background(), "tok", now)
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if got.Token != "tok" || got.InvitedBy == nil || *got.InvitedBy != inviter || got.ExpiresAt == nil {
		t.Fatalf("unexpected invite: %+v", got)
	}
}

func TestConsume_NoRowsIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*DELETE\s+FROM\s+invites`).WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Consume(context.Background(), "gone", time.Now())
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestListByInviter(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	q := `(?s)^\s*SELECT\s+token,.*FROM\s+invites\s+WHERE\s+invited_by::text\s*=\s*\$1.*ORDER\s+BY\s+created_at\s+DESC\s*$`
	mock.ExpectQuery(q).
		WithArgs("acc-1", now).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("t2", "acc-1", "c@example.com", "new_account", nil, "viewer", now, nil).
			AddRow("t1", "acc-1", "b@example.com", "new_account", nil, "viewer", now.Add(-time.Minute), nil))

	got, err := repo.ListByInviter(context.Background(), "acc-1", now)
	if err != nil {
		t.Fatalf("ListByInviter error: %v", err)
	}
	if len(got) != 2 || got[0].Token != "t2" {
		t.Fatalf("unexpected invites: %+v", got)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`DELETE\s+FROM\s+invites\s+WHERE\s+expires_at\s+IS\s+NOT\s+NULL\s+AND\s+expires_at\s*<=\s*\$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 deleted, got %d %v", n, err)
	}
}

func TestDeleteExpired_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+invites`).WillReturnError(errors.New("db down"))

	_, err := repo.DeleteExpired(context.Background(), time.Now())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
