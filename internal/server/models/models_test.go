package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@example.com", NormalizeEmail("  A@Example.COM "))
}

func TestAccountCreate_HasInvite(t *testing.T) {
	blank := "   "
	tok := "abc"
	assert.False(t, AccountCreate{}.HasInvite())
	assert.False(t, AccountCreate{InviteToken: &blank}.HasInvite())
	assert.True(t, AccountCreate{InviteToken: &tok}.HasInvite())
}

func TestAccountPatch_Apply(t *testing.T) {
	verified := true
	name := "Alice"
	a := &Account{Name: "old", PasswordHash: "h", IsActive: true}

	p := AccountPatch{Name: &name, IsVerified: &verified}
	assert.False(t, p.Empty())
	p.Apply(a)

	assert.Equal(t, "Alice", a.Name)
	assert.True(t, a.IsVerified)
	assert.Equal(t, "h", a.PasswordHash)
	assert.True(t, a.IsActive)
	assert.True(t, AccountPatch{}.Empty())
}

func TestInvite_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Invite{}).Expired(now))
	assert.True(t, (&Invite{ExpiresAt: &past}).Expired(now))
	assert.True(t, (&Invite{ExpiresAt: &now}).Expired(now))
	assert.False(t, (&Invite{ExpiresAt: &future}).Expired(now))
}
