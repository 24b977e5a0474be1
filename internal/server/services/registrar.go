package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/worker"
)

const (
	defaultStorageName = "default"

	// DefaultCollaboratorTimeout applies when RegistrarConfig leaves the
	// timeout unset.
	DefaultCollaboratorTimeout = 10 * time.Second
)

type RegistrarConfig struct {
	RegistrationEnabled bool

	// CollaboratorTimeout bounds account creation and each
	// post-registration step.
	CollaboratorTimeout time.Duration
}

// Registrar runs account registration: validate the request, create the
// account, then run the follow-up steps. Once the account exists the
// registration counts as successful; follow-up failures are only logged.
type Registrar struct {
	accounts   *AccountStore
	ledger     *InviteLedger
	archives   ArchiveProvisioner
	issuer     *auth.Issuer
	mailer     EmailSender
	dispatcher Dispatcher
	cfg        RegistrarConfig
	log        logging.Logger
}

func NewRegistrar(accounts *AccountStore, ledger *InviteLedger, archives ArchiveProvisioner, issuer *auth.Issuer,
	mailer EmailSender, dispatcher Dispatcher, cfg RegistrarConfig, log logging.Logger) *Registrar {
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = DefaultCollaboratorTimeout
	}
	return &Registrar{
		accounts:   accounts,
		ledger:     ledger,
		archives:   archives,
		issuer:     issuer,
		mailer:     mailer,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log.With("module", "registrar"),
	}
}

func (r *Registrar) Register(ctx context.Context, in models.AccountCreate) (*models.Account, error) {
	if err := r.validate(ctx, in); err != nil {
		return nil, err
	}

	account, err := r.create(ctx, in)
	if err != nil {
		return nil, err
	}
	r.log.Info(ctx, "account registered", "account_id", account.ID)

	r.postProcess(ctx, account, in)
	return account, nil
}

// create is bounded by the collaborator timeout. Unlike the follow-up
// steps it stays tied to the caller, and running out of time fails the
// registration.
func (r *Registrar) create(ctx context.Context, in models.AccountCreate) (*models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CollaboratorTimeout)
	defer cancel()
	return r.accounts.Create(ctx, in)
}

func (r *Registrar) validate(ctx context.Context, in models.AccountCreate) error {
	if !in.HasInvite() {
		if !r.cfg.RegistrationEnabled {
			return common.ErrInviteRequired
		}
		return nil
	}

	inv, err := r.ledger.GetValidInvite(ctx, *in.InviteToken, InviteContext{Email: in.Email, Kind: models.InviteNewAccount})
	if err != nil {
		return fmt.Errorf("error checking invite: %w", err)
	}
	if inv == nil {
		return common.ErrInvalidInvite
	}
	return nil
}

func (r *Registrar) postProcess(ctx context.Context, account *models.Account, in models.AccountCreate) {
	if in.NewArchive {
		name := in.NewArchiveName
		if name == "" {
			name = defaultArchiveName(account)
		}
		r.step(ctx, "create-archive", func(ctx context.Context) error {
			_, err := r.archives.CreateNewArchiveForUser(ctx, name, defaultStorageName, account)
			return err
		})
	}

	if !in.HasInvite() {
		r.dispatcher.Submit("verification-email", verificationTask(r.issuer, r.mailer, account))
		return
	}

	r.step(ctx, "redeem-invite", func(ctx context.Context) error {
		return r.archives.HandleNewUserInvite(ctx, *in.InviteToken, account)
	})

	// Invited addresses are trusted: the invite reached that inbox.
	verified := true
	if r.step(ctx, "mark-verified", func(ctx context.Context) error {
		return r.accounts.UpdateFields(ctx, account.ID, models.AccountPatch{IsVerified: &verified})
	}) {
		account.IsVerified = true
	}
}

// step runs fn with its own deadline, detached from the caller's
// cancellation, and reports whether it succeeded. A step that ignores its
// context is abandoned once the deadline passes.
func (r *Registrar) step(ctx context.Context, name string, fn func(ctx context.Context) error) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CollaboratorTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- fn(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		r.log.Error(ctx, "post-registration step failed", "step", name, "error", err)
		return false
	}
	return true
}

func defaultArchiveName(a *models.Account) string {
	name := a.Name
	if name == "" {
		name = a.Email
	}
	return fmt.Sprintf("%s's Archive", name)
}

func verificationTask(issuer *auth.Issuer, mailer EmailSender, account *models.Account) worker.Task {
	id, email := account.ID, account.Email
	return func(ctx context.Context) error {
		tok, err := issuer.IssuePurpose(id, auth.PurposeEmailVerify, "")
		if err != nil {
			return err
		}
		return mailer.SendVerification(ctx, email, tok.Value)
	}
}
