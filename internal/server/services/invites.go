package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/invites"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const inviteTokenBytes = 32

// InviteContext describes who is about to redeem an invite and how.
type InviteContext struct {
	Email string
	Kind  models.InviteKind
}

// InviteLedger creates, checks and consumes single-use invites.
type InviteLedger struct {
	repomanager repomanager.RepositoryManager
	accounts    *AccountStore
	mailer      EmailSender
	dispatcher  Dispatcher
	lifetime    time.Duration
	log         logging.Logger

	now func() time.Time
}

// NewInviteLedger builds a ledger. A zero lifetime creates invites that
// never expire.
func NewInviteLedger(m repomanager.RepositoryManager, accounts *AccountStore, mailer EmailSender,
	dispatcher Dispatcher, lifetime time.Duration, log logging.Logger) *InviteLedger {
	return &InviteLedger{
		repomanager: m,
		accounts:    accounts,
		mailer:      mailer,
		dispatcher:  dispatcher,
		lifetime:    lifetime,
		log:         log.With("module", "invites"),
		now:         time.Now,
	}
}

func (l *InviteLedger) repo() invites.Repository {
	return l.repomanager.Invites(l.repomanager.Conn())
}

func validRole(role string) bool {
	switch role {
	case models.RoleViewer, models.RoleCrawler, models.RoleOwner:
		return true
	}
	return false
}

// CreateInvite stores a fresh invite. An empty role means viewer.
func (l *InviteLedger) CreateInvite(ctx context.Context, scope models.InviteScope, email, role string, issuer *string) (*models.Invite, error) {
	switch scope.Kind {
	case models.InviteNewAccount:
	case models.InviteExistingAccountLink:
		if scope.ResourceID == nil || *scope.ResourceID == "" {
			return nil, fmt.Errorf("%w: existing account invites need an archive", common.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown invite kind %q", common.ErrValidation, scope.Kind)
	}

	if role == "" {
		role = models.RoleViewer
	}
	if !validRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, role)
	}

	token, err := common.MakeRandToken(inviteTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating invite token: %w", err)
	}

	inv := &models.Invite{
		Token:     token,
		InvitedBy: issuer,
		Email:     models.NormalizeEmail(email),
		Scope:     scope,
		Role:      role,
	}
	if l.lifetime > 0 {
		exp := l.now().Add(l.lifetime).UTC()
		inv.ExpiresAt = &exp
	}

	created, err := l.repo().Create(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("error creating invite: %w", err)
	}
	return created, nil
}

// GetValidInvite returns the invite if it exists, has not expired and fits
// the prospective redeemer. Otherwise it returns nil, nil. Nothing is
// consumed.
func (l *InviteLedger) GetValidInvite(ctx context.Context, token string, who InviteContext) (*models.Invite, error) {
	if token == "" {
		return nil, nil
	}

	inv, err := l.repo().Get(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if inv.Expired(l.now()) {
		return nil, nil
	}
	if who.Kind != "" && inv.Scope.Kind != who.Kind {
		return nil, nil
	}
	if inv.Email != "" && who.Email != "" && inv.Email != models.NormalizeEmail(who.Email) {
		return nil, nil
	}
	return inv, nil
}

// ConsumeInvite removes the invite and returns it. Missing, expired and
// already consumed tokens yield common.ErrInvalidInvite.
func (l *InviteLedger) ConsumeInvite(ctx context.Context, token string) (*models.Invite, error) {
	return l.consume(ctx, l.repo(), token)
}

// consume runs the single-use delete through repo, which may be bound to a
// transaction.
func (l *InviteLedger) consume(ctx context.Context, repo invites.Repository, token string) (*models.Invite, error) {
	inv, err := repo.Consume(ctx, token, l.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidInvite
		}
		return nil, err
	}
	return inv, nil
}

// InviteUser creates an invite on behalf of inviter and queues the invite
// email. Inviting to an archive needs owner rights there unless the
// inviter is a superuser. With allowExisting, an address that already has
// an account gets an existing_account_link invite; without it such
// addresses are rejected with common.ErrAlreadyExists.
func (l *InviteLedger) InviteUser(ctx context.Context, req models.InviteRequest, inviter *models.Account, allowExisting bool) (*models.Invite, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrValidation)
	}

	existing, err := l.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil && !allowExisting {
		return nil, common.ErrAlreadyExists
	}

	if req.ArchiveID != nil {
		if err := l.checkArchive(ctx, *req.ArchiveID); err != nil {
			return nil, err
		}
	}

	if req.ArchiveID != nil && !inviter.IsSuperuser {
		role, err := l.repomanager.Archives(l.repomanager.Conn()).GetMemberRole(ctx, *req.ArchiveID, inviter.ID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		if role != models.RoleOwner {
			return nil, common.ErrUnauthorized
		}
	}

	scope := models.InviteScope{Kind: models.InviteNewAccount, ResourceID: req.ArchiveID}
	if existing != nil {
		scope.Kind = models.InviteExistingAccountLink
	}

	inviterID := inviter.ID
	inv, err := l.CreateInvite(ctx, scope, email, req.Role, &inviterID)
	if err != nil {
		return nil, err
	}

	inviterName := inviter.Name
	token := inv.Token
	l.dispatcher.Submit("invite-email", func(ctx context.Context) error {
		return l.mailer.SendInvite(ctx, email, token, inviterName)
	})
	l.log.Info(ctx, "invite created", "invited_by", inviterID, "kind", string(scope.Kind))

	return inv, nil
}

func (l *InviteLedger) checkArchive(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: malformed archive id %q", common.ErrValidation, id)
	}
	if _, err := l.repomanager.Archives(l.repomanager.Conn()).Get(ctx, id); err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}
	return nil
}

// ListPending returns the unexpired invites issued by accountID.
func (l *InviteLedger) ListPending(ctx context.Context, accountID string) ([]models.Invite, error) {
	return l.repo().ListByInviter(ctx, accountID, l.now())
}

// PurgeExpired deletes invites that expired at or before now.
func (l *InviteLedger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := l.repo().DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		l.log.Info(ctx, "expired invites purged", "count", n)
	}
	return n, nil
}
