package invites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

const inviteColumns = `token, invited_by, email, kind, resource_id, role, created_at, expires_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (*models.Invite, error) {
	var (
		inv        models.Invite
		invitedBy  sql.NullString
		resourceID sql.NullString
		expiresAt  sql.NullTime
		kind       string
	)
	if err := row.Scan(&inv.Token, &invitedBy, &inv.Email, &kind, &resourceID, &inv.Role, &inv.CreatedAt, &expiresAt); err != nil {
		return nil, err
	}
	inv.Scope.Kind = models.InviteKind(kind)
	if invitedBy.Valid {
		inv.InvitedBy = &invitedBy.String
	}
	if resourceID.Valid {
		inv.Scope.ResourceID = &resourceID.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		inv.ExpiresAt = &t
	}
	return &inv, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *PostgresRepository) Create(ctx context.Context, inv *models.Invite) (*models.Invite, error) {
	query := `
		INSERT INTO invites (token, invited_by, email, kind, resource_id, role, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		inv.Token, nullString(inv.InvitedBy), inv.Email, string(inv.Scope.Kind),
		nullString(inv.Scope.ResourceID), inv.Role, nullTime(inv.ExpiresAt)).
		Scan(&inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) Get(ctx context.Context, token string) (*models.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE token = $1`
	inv, err := scanInvite(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inv, nil
}

// Consume is a single DELETE ... RETURNING, so the row lock taken by the
// first deleter makes every concurrent attempt see zero rows.
func (r *PostgresRepository) Consume(ctx context.Context, token string, now time.Time) (*models.Invite, error) {
	query := `
		DELETE FROM invites
		WHERE token = $1 AND (expires_at IS NULL OR expires_at > $2)
		RETURNING ` + inviteColumns
	inv, err := scanInvite(r.db.QueryRowContext(ctx, query, token, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) ListByInviter(ctx context.Context, accountID string, now time.Time) ([]models.Invite, error) {
	query := `
		SELECT ` + inviteColumns + ` FROM invites
		WHERE invited_by::text = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invites WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
