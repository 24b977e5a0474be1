package models

import "time"

// Archive is an organizational resource accounts can be members of.
type Archive struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StorageName string    `json:"storage_name"`
	StorageKey  string    `json:"storage_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArchiveMember links an account to an archive with a role.
type ArchiveMember struct {
	ArchiveID string `json:"archive_id"`
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
}
