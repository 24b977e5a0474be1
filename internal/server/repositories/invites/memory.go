package invites

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// MemoryRepository is a mutex-guarded map keyed by token.
type MemoryRepository struct {
	mu      sync.Mutex
	invites map[string]models.Invite
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{invites: make(map[string]models.Invite)}
}

func (r *MemoryRepository) Create(_ context.Context, inv *models.Invite) (*models.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv.CreatedAt = time.Now().UTC()
	r.invites[inv.Token] = *inv
	return inv, nil
}

func (r *MemoryRepository) Get(_ context.Context, token string) (*models.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invites[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &inv, nil
}

func (r *MemoryRepository) Consume(_ context.Context, token string, now time.Time) (*models.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invites[token]
	if !ok || inv.Expired(now) {
		return nil, common.ErrorNotFound
	}
	delete(r.invites, token)
	return &inv, nil
}

func (r *MemoryRepository) ListByInviter(_ context.Context, accountID string, now time.Time) ([]models.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []models.Invite{}
	for _, inv := range r.invites {
		if inv.InvitedBy == nil || *inv.InvitedBy != accountID || inv.Expired(now) {
			continue
		}
		result = append(result, inv)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for token, inv := range r.invites {
		if inv.Expired(now) {
			delete(r.invites, token)
			n++
		}
	}
	return n, nil
}
