package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
)

// ArchiveService creates archives and turns redeemed invites into
// memberships.
type ArchiveService struct {
	repomanager repomanager.RepositoryManager
	ledger      *InviteLedger
	store       ObjectStore
	log         logging.Logger
}

func NewArchiveService(m repomanager.RepositoryManager, ledger *InviteLedger, store ObjectStore, log logging.Logger) *ArchiveService {
	return &ArchiveService{
		repomanager: m,
		ledger:      ledger,
		store:       store,
		log:         log.With("module", "archives"),
	}
}

// CreateNewArchiveForUser creates the archive with account as owner, then
// reserves its storage prefix.
func (s *ArchiveService) CreateNewArchiveForUser(ctx context.Context, name, storageName string, account *models.Account) (*models.Archive, error) {
	var archive *models.Archive
	err := s.repomanager.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Archives(tx)

		a, err := repo.Create(ctx, &models.Archive{Name: name, StorageName: storageName})
		if err != nil {
			return err
		}
		archive = a
		return repo.AddMember(ctx, models.ArchiveMember{ArchiveID: a.ID, AccountID: account.ID, Role: models.RoleOwner})
	})
	if err != nil {
		return nil, fmt.Errorf("error creating archive: %w", err)
	}

	if err := s.store.Reserve(ctx, archive.StorageKey); err != nil {
		return archive, fmt.Errorf("error reserving storage for archive %s: %w", archive.ID, err)
	}

	s.log.Info(ctx, "archive created", "archive_id", archive.ID, "owner", account.ID)
	return archive, nil
}

// redeem consumes token and grants the membership it carries in one
// transaction. The invite and its archive are checked first, so an invite
// pointing at a missing archive is rejected without being consumed.
func (s *ArchiveService) redeem(ctx context.Context, token string, account *models.Account) (*models.ArchiveMember, error) {
	pending, err := s.repomanager.Invites(s.repomanager.Conn()).Get(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidInvite
		}
		return nil, fmt.Errorf("error loading invite: %w", err)
	}
	if pending.Expired(s.ledger.now()) {
		return nil, common.ErrInvalidInvite
	}
	if pending.Scope.ResourceID != nil {
		if _, err := s.repomanager.Archives(s.repomanager.Conn()).Get(ctx, *pending.Scope.ResourceID); err != nil {
			return nil, fmt.Errorf("error loading invite archive: %w", err)
		}
	}

	var member *models.ArchiveMember
	err = s.repomanager.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		inv, err := s.ledger.consume(ctx, s.repomanager.Invites(tx), token)
		if err != nil {
			return err
		}
		if inv.Scope.ResourceID == nil {
			return nil
		}

		m := models.ArchiveMember{ArchiveID: *inv.Scope.ResourceID, AccountID: account.ID, Role: inv.Role}
		if err := s.repomanager.Archives(tx).AddMember(ctx, m); err != nil {
			return fmt.Errorf("error adding archive member: %w", err)
		}
		member = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// HandleNewUserInvite consumes the invite used at registration and joins
// the archive it points to, if any.
func (s *ArchiveService) HandleNewUserInvite(ctx context.Context, token string, account *models.Account) error {
	_, err := s.redeem(ctx, token, account)
	return err
}

// HandleExistingUserInvite redeems an existing_account_link invite for a
// signed-in account.
func (s *ArchiveService) HandleExistingUserInvite(ctx context.Context, token string, account *models.Account) (*models.ArchiveMember, error) {
	inv, err := s.ledger.GetValidInvite(ctx, token, InviteContext{Email: account.Email, Kind: models.InviteExistingAccountLink})
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, common.ErrInvalidInvite
	}

	m, err := s.redeem(ctx, token, account)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, common.ErrInvalidInvite
	}
	return m, nil
}
