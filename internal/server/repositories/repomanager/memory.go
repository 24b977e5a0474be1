package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/archives"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/invites"
)

// MemoryRepositoryManager serves process-local repositories. The DBTX
// arguments are ignored and transactions are not isolated; each repository
// guards its own state.
type MemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
	invites  *invites.MemoryRepository
	archives *archives.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		accounts: accounts.NewMemoryRepository(),
		invites:  invites.NewMemoryRepository(),
		archives: archives.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Conn() dbx.DBTX { return nil }

func (m *MemoryRepositoryManager) RunInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return fn(ctx, nil)
}

func (m *MemoryRepositoryManager) Accounts(dbx.DBTX) accounts.Repository { return m.accounts }

func (m *MemoryRepositoryManager) Invites(dbx.DBTX) invites.Repository { return m.invites }

func (m *MemoryRepositoryManager) Archives(dbx.DBTX) archives.Repository { return m.archives }
