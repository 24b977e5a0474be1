package models

import "time"

// InviteKind says what redeeming an invite authorizes.
type InviteKind string

const (
	// InviteNewAccount lets anyone holding the token register.
	InviteNewAccount InviteKind = "new_account"
	// InviteExistingAccountLink lets an authenticated account join a resource.
	InviteExistingAccountLink InviteKind = "existing_account_link"
)

// Archive roles granted through invites.
const (
	RoleViewer  = "viewer"
	RoleCrawler = "crawler"
	RoleOwner   = "owner"
)

// InviteScope binds an invite to a flow and, optionally, an archive.
type InviteScope struct {
	Kind       InviteKind `json:"kind"`
	ResourceID *string    `json:"resource_id,omitempty"`
}

// Invite is a single-use invitation record.
type Invite struct {
	Token     string      `json:"token"`
	InvitedBy *string     `json:"invited_by,omitempty"`
	Email     string      `json:"email,omitempty"`
	Scope     InviteScope `json:"scope"`
	Role      string      `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// Expired reports whether the invite is past its expiry at now.
func (i *Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// InviteRequest is what an authenticated account submits to invite someone.
type InviteRequest struct {
	Email     string  `json:"email"`
	ArchiveID *string `json:"archive_id,omitempty"`
	Role      string  `json:"role,omitempty"`
}
