// Package models defines server-side data models. Accounts come in one type
// per lifecycle stage: AccountCreate (registration input), Account (durable
// record) and AccountPatch (partial update).
package models

import (
	"strings"
	"time"
)

// Account is the durable account record. PasswordHash never leaves the
// server.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccountCreate is the registration request.
type AccountCreate struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Name           string  `json:"name"`
	InviteToken    *string `json:"inviteToken"`
	NewArchive     bool    `json:"newArchive"`
	NewArchiveName string  `json:"newArchiveName"`

	// IsSuperuser is only ever set by the admin tool.
	IsSuperuser bool `json:"-"`
}

// HasInvite reports whether a non-blank invite token was supplied.
func (c AccountCreate) HasInvite() bool {
	return c.InviteToken != nil && strings.TrimSpace(*c.InviteToken) != ""
}

// AccountPatch lists the fields an update may change. Nil fields are left
// untouched.
type AccountPatch struct {
	Name         *string
	PasswordHash *string
	IsVerified   *bool
	IsActive     *bool
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Name == nil && p.PasswordHash == nil && p.IsVerified == nil && p.IsActive == nil
}

// Apply copies the set fields of p onto a.
func (p AccountPatch) Apply(a *Account) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.PasswordHash != nil {
		a.PasswordHash = *p.PasswordHash
	}
	if p.IsVerified != nil {
		a.IsVerified = *p.IsVerified
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
}

// AccountName is the projection returned by batch name lookups.
type AccountName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
