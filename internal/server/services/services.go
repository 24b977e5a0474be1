// Package services holds the identity and access logic: accounts, invites,
// archives provisioning, registration and the auth gateway that fronts them.
package services

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/worker"
)

// Dispatcher accepts fire-and-forget work. Submit must not block.
type Dispatcher interface {
	Submit(name string, task worker.Task) bool
}

// EmailSender delivers account emails.
type EmailSender interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
	SendInvite(ctx context.Context, email, token, inviter string) error
}

// ArchiveProvisioner is what registration needs from the archive side.
type ArchiveProvisioner interface {
	CreateNewArchiveForUser(ctx context.Context, name, storageName string, account *models.Account) (*models.Archive, error)
	HandleNewUserInvite(ctx context.Context, token string, account *models.Account) error
}

// ObjectStore reserves storage space under a key prefix.
type ObjectStore interface {
	Reserve(ctx context.Context, prefix string) error
}
