package archives

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
)

type memberKey struct{ archiveID, accountID string }

type MemoryRepository struct {
	mu       sync.RWMutex
	archives map[string]models.Archive
	members  map[memberKey]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		archives: make(map[string]models.Archive),
		members:  make(map[memberKey]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, a *models.Archive) (*models.Archive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StorageKey == "" {
		a.StorageKey = StorageKey(a.ID)
	}
	a.CreatedAt = time.Now().UTC()
	r.archives[a.ID] = *a
	return a, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.Archive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.archives[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) AddMember(_ context.Context, m models.ArchiveMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.archives[m.ArchiveID]; !ok {
		return common.ErrorNotFound
	}
	r.members[memberKey{m.ArchiveID, m.AccountID}] = m.Role
	return nil
}

func (r *MemoryRepository) GetMemberRole(_ context.Context, archiveID, accountID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.members[memberKey{archiveID, accountID}]
	if !ok {
		return "", common.ErrorNotFound
	}
	return role, nil
}
