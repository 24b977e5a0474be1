// Package archives persists archives and their memberships.
package archives

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

type Repository interface {
	// Create assigns an ID and storage key when they are empty.
	Create(ctx context.Context, archive *models.Archive) (*models.Archive, error)
	Get(ctx context.Context, id string) (*models.Archive, error)

	// AddMember upserts the membership, replacing the role if one exists.
	AddMember(ctx context.Context, member models.ArchiveMember) error

	// GetMemberRole returns common.ErrorNotFound for non-members.
	GetMemberRole(ctx context.Context, archiveID, accountID string) (string, error)
}

// StorageKey is the object-store prefix reserved for an archive.
func StorageKey(id string) string {
	return "archives/" + id
}
