// Package repomanager vends repositories bound to a connection or a
// transaction and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/archives"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/invites"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error

	// Conn is the handle for non-transactional work. It may be nil for
	// backends that ignore it.
	Conn() dbx.DBTX

	// RunInTx runs fn inside a transaction, committing when fn returns nil.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

	Accounts(db dbx.DBTX) accounts.Repository
	Invites(db dbx.DBTX) invites.Repository
	Archives(db dbx.DBTX) archives.Repository
}
