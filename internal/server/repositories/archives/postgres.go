package archives

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Archive) (*models.Archive, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StorageKey == "" {
		a.StorageKey = StorageKey(a.ID)
	}

	query := `
		INSERT INTO archives (id, name, storage_name, storage_key)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, a.ID, a.Name, a.StorageName, a.StorageKey).Scan(&a.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Archive, error) {
	query := `SELECT id, name, storage_name, storage_key, created_at FROM archives WHERE id::text = $1`

	a := &models.Archive{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.StorageName, &a.StorageKey, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) AddMember(ctx context.Context, m models.ArchiveMember) error {
	query := `
		INSERT INTO archive_members (archive_id, account_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (archive_id, account_id) DO UPDATE SET role = EXCLUDED.role
	`
	if _, err := r.db.ExecContext(ctx, query, m.ArchiveID, m.AccountID, m.Role); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetMemberRole(ctx context.Context, archiveID, accountID string) (string, error) {
	query := `SELECT role FROM archive_members WHERE archive_id::text = $1 AND account_id::text = $2`

	var role string
	if err := r.db.QueryRowContext(ctx, query, archiveID, accountID).Scan(&role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return role, nil
}
