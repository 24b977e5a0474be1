package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// AccountStore owns account records and password handling.
type AccountStore struct {
	repomanager repomanager.RepositoryManager
	params      cryptox.Params

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountStore(m repomanager.RepositoryManager, params cryptox.Params) *AccountStore {
	return &AccountStore{repomanager: m, params: params}
}

func (s *AccountStore) repo() accounts.Repository {
	return s.repomanager.Accounts(s.repomanager.Conn())
}

// Create validates and stores a new active, unverified account. The name
// defaults to the email.
func (s *AccountStore) Create(ctx context.Context, in models.AccountCreate) (*models.Account, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email", common.ErrValidation)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}

	hash, err := cryptox.HashPassword(in.Password, s.params)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	a, err := s.repo().Create(ctx, &models.Account{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  in.IsSuperuser,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return a, nil
}

// FindByEmail returns nil, nil when no account has the address.
func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, err := s.repo().GetByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return a, err
}

// FindByID returns nil, nil for unknown ids.
func (s *AccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.repo().GetByID(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return a, err
}

// FindManyNames resolves at most common.MaxNamesLookup ids to display
// names. Extra ids are ignored; a malformed id fails the whole lookup.
func (s *AccountStore) FindManyNames(ctx context.Context, ids []string) ([]models.AccountName, error) {
	if len(ids) > common.MaxNamesLookup {
		ids = ids[:common.MaxNamesLookup]
	}

	canonical := make([]string, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: bad account id %q", common.ErrValidation, id)
		}
		canonical = append(canonical, u.String())
	}
	return s.repo().GetNames(ctx, canonical)
}

func (s *AccountStore) UpdateFields(ctx context.Context, id string, patch models.AccountPatch) error {
	return s.repo().Update(ctx, id, patch)
}

// SetPassword replaces the password hash of an account.
func (s *AccountStore) SetPassword(ctx context.Context, id, password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", common.ErrValidation)
	}
	hash, err := cryptox.HashPassword(password, s.params)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	return s.UpdateFields(ctx, id, models.AccountPatch{PasswordHash: &hash})
}

// Authenticate checks credentials. Unknown emails still pay for one hash
// verification so that response time does not reveal which addresses exist.
func (s *AccountStore) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	a, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		_, _ = cryptox.VerifyPassword(s.dummy(), password)
		return nil, common.ErrUnauthorized
	}

	ok, err := cryptox.VerifyPassword(a.PasswordHash, password)
	if err != nil || !ok || !a.IsActive {
		return nil, common.ErrUnauthorized
	}
	return a, nil
}

func (s *AccountStore) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = cryptox.HashPassword(uuid.NewString(), s.params)
	})
	return s.dummyHash
}
