package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/worker"
	"github.com/stretchr/testify/mock"
)

var testParams = cryptox.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8}

type MailerMock struct {
	mock.Mock
}

func (m *MailerMock) SendVerification(ctx context.Context, email, token string) error {
	return m.Called(ctx, email, token).Error(0)
}

func (m *MailerMock) SendPasswordReset(ctx context.Context, email, token string) error {
	return m.Called(ctx, email, token).Error(0)
}

func (m *MailerMock) SendInvite(ctx context.Context, email, token, inviter string) error {
	return m.Called(ctx, email, token, inviter).Error(0)
}

type ArchiveProvisionerMock struct {
	mock.Mock
}

func (m *ArchiveProvisionerMock) CreateNewArchiveForUser(ctx context.Context, name, storageName string, account *models.Account) (*models.Archive, error) {
	args := m.Called(ctx, name, storageName, account)
	a, _ := args.Get(0).(*models.Archive)
	return a, args.Error(1)
}

func (m *ArchiveProvisionerMock) HandleNewUserInvite(ctx context.Context, token string, account *models.Account) error {
	return m.Called(ctx, token, account).Error(0)
}

// inlineDispatcher runs tasks synchronously and records their names.
type inlineDispatcher struct {
	mu     sync.Mutex
	names  []string
	errs   []error
	reject bool
}

func (d *inlineDispatcher) Submit(name string, task worker.Task) bool {
	if d.reject {
		return false
	}
	err := task(context.Background())

	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	d.errs = append(d.errs, err)
	return true
}

func (d *inlineDispatcher) submitted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.names...)
}

type recordingStore struct {
	mu       sync.Mutex
	prefixes []string
	err      error
}

func (s *recordingStore) Reserve(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes = append(s.prefixes, prefix)
	return s.err
}

// fixture wires real services over the in-memory repositories.
type fixture struct {
	rm         *repomanager.MemoryRepositoryManager
	accounts   *AccountStore
	ledger     *InviteLedger
	archives   *ArchiveService
	issuer     *auth.Issuer
	mailer     *MailerMock
	dispatcher *inlineDispatcher
	store      *recordingStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rm:         repomanager.NewMemoryRepositoryManager(),
		issuer:     auth.NewIssuer([]byte("test-secret"), time.Hour, time.Hour),
		mailer:     &MailerMock{},
		dispatcher: &inlineDispatcher{},
		store:      &recordingStore{},
	}
	f.accounts = NewAccountStore(f.rm, testParams)
	f.ledger = NewInviteLedger(f.rm, f.accounts, f.mailer, f.dispatcher, 7*24*time.Hour, logging.Nop{})
	f.archives = NewArchiveService(f.rm, f.ledger, f.store, logging.Nop{})
	return f
}

func (f *fixture) registrar(archives ArchiveProvisioner, cfg RegistrarConfig) *Registrar {
	if cfg.CollaboratorTimeout == 0 {
		cfg.CollaboratorTimeout = time.Second
	}
	return NewRegistrar(f.accounts, f.ledger, archives, f.issuer, f.mailer, f.dispatcher, cfg, logging.Nop{})
}

func (f *fixture) mustAccount(t *testing.T, email, password string) *models.Account {
	t.Helper()
	a, err := f.accounts.Create(context.Background(), models.AccountCreate{Email: email, Password: password})
	if err != nil {
		t.Fatalf("create account %s: %v", email, err)
	}
	return a
}

func ptr[T any](v T) *T { return &v }
