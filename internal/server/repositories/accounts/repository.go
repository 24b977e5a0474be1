// Package accounts declares the account repository contract and its
// PostgreSQL and in-memory implementations.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// Repository persists account records. Emails are expected to be normalized
// by the caller.
type Repository interface {
	// Create inserts the account and fills ID and CreatedAt. A taken email
	// yields common.ErrDuplicateEmail.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByEmail and GetByID return common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// GetNames returns id/name pairs for the ids that exist.
	GetNames(ctx context.Context, ids []string) ([]models.AccountName, error)

	// Update applies patch to the account with id. Unknown ids yield
	// common.ErrorNotFound.
	Update(ctx context.Context, id string, patch models.AccountPatch) error
}
