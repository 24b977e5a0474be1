package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. The mutex makes the
// email uniqueness check and insert one step.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.Account
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]models.Account),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[a.Email]; taken {
		return nil, common.ErrDuplicateEmail
	}

	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	r.byID[a.ID] = *a
	r.byEmail[a.Email] = a.ID
	return a, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) GetNames(_ context.Context, ids []string) ([]models.AccountName, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]models.AccountName, 0, len(ids))
	for _, id := range ids {
		if a, ok := r.byID[id]; ok {
			names = append(names, models.AccountName{ID: a.ID, Name: a.Name})
		}
	}
	return names, nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, patch models.AccountPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	patch.Apply(&a)
	r.byID[id] = a
	return nil
}
