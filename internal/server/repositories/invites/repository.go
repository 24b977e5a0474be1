// Package invites stores single-use invitation tokens.
package invites

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, invite *models.Invite) (*models.Invite, error)

	// Get returns the invite for token regardless of expiry, or
	// common.ErrorNotFound.
	Get(ctx context.Context, token string) (*models.Invite, error)

	// Consume atomically removes an unexpired invite and returns it. At most
	// one of any number of concurrent callers for the same token succeeds;
	// the rest get common.ErrorNotFound.
	Consume(ctx context.Context, token string, now time.Time) (*models.Invite, error)

	// ListByInviter returns unexpired invites created by accountID, newest
	// first.
	ListByInviter(ctx context.Context, accountID string, now time.Time) ([]models.Invite, error)

	// DeleteExpired removes invites whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
