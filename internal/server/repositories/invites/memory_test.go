package invites

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestMemoryRepository_ConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	now := time.Now()

	_, err := r.Create(ctx, &models.Invite{Token: "tok", Scope: models.InviteScope{Kind: models.InviteNewAccount}})
	require.NoError(t, err)

	got, err := r.Consume(ctx, "tok", now)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)

	_, err = r.Consume(ctx, "tok", now)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_ConsumeRejectsExpired(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	now := time.Now()

	_, err := r.Create(ctx, &models.Invite{Token: "old", ExpiresAt: ptr(now.Add(-time.Second))})
	require.NoError(t, err)

	_, err = r.Consume(ctx, "old", now)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// Expired invites stay readable until purged.
	_, err = r.Get(ctx, "old")
	assert.NoError(t, err)

	n, err := r.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = r.Get(ctx, "old")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	_, err := r.Create(ctx, &models.Invite{Token: "race"})
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Consume(ctx, "race", time.Now()); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryRepository_ListByInviter(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	now := time.Now()

	_, _ = r.Create(ctx, &models.Invite{Token: "a", InvitedBy: ptr("acc-1")})
	_, _ = r.Create(ctx, &models.Invite{Token: "b", InvitedBy: ptr("acc-2")})
	_, _ = r.Create(ctx, &models.Invite{Token: "c", InvitedBy: ptr("acc-1"), ExpiresAt: ptr(now.Add(-time.Hour))})

	got, err := r.ListByInviter(ctx, "acc-1", now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Token)
}
