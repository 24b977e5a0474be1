package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// GatewayDeps lists what the gateway fronts.
type GatewayDeps struct {
	Accounts   *AccountStore
	Ledger     *InviteLedger
	Archives   *ArchiveService
	Registrar  *Registrar
	Issuer     *auth.Issuer
	Mailer     EmailSender
	Dispatcher Dispatcher
	Log        logging.Logger
}

// Gateway is the request-facing surface: login, registration, password
// reset, verification and invites.
type Gateway struct {
	d   GatewayDeps
	log logging.Logger
}

func NewGateway(d GatewayDeps) *Gateway {
	return &Gateway{d: d, log: d.Log.With("module", "gateway")}
}

func (g *Gateway) Login(ctx context.Context, email, password string) (auth.Token, error) {
	a, err := g.d.Accounts.Authenticate(ctx, email, password)
	if err != nil {
		return auth.Token{}, err
	}
	return g.d.Issuer.IssueBearer(a.ID)
}

// Authenticate resolves a bearer token to an active account. Every failure
// is common.ErrUnauthorized.
func (g *Gateway) Authenticate(ctx context.Context, bearer string) (*models.Account, error) {
	id, err := g.d.Issuer.ValidateBearer(bearer)
	if err != nil {
		return nil, common.ErrUnauthorized
	}
	a, err := g.d.Accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || !a.IsActive {
		return nil, common.ErrUnauthorized
	}
	return a, nil
}

// Refresh issues a new bearer for the holder of a valid one.
func (g *Gateway) Refresh(ctx context.Context, bearer string) (auth.Token, error) {
	a, err := g.Authenticate(ctx, bearer)
	if err != nil {
		return auth.Token{}, err
	}
	return g.d.Issuer.IssueBearer(a.ID)
}

func (g *Gateway) Register(ctx context.Context, in models.AccountCreate) (*models.Account, error) {
	return g.d.Registrar.Register(ctx, in)
}

// RequestPasswordReset mails a reset token. Unknown or inactive addresses
// get the same silent success.
func (g *Gateway) RequestPasswordReset(ctx context.Context, email string) error {
	a, err := g.d.Accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if a == nil || !a.IsActive {
		g.log.Debug(ctx, "password reset for unknown or inactive address ignored")
		return nil
	}

	tok, err := g.d.Issuer.IssuePurpose(a.ID, auth.PurposePasswordReset, cryptox.Fingerprint(a.PasswordHash))
	if err != nil {
		return err
	}

	to, value := a.Email, tok.Value
	g.d.Dispatcher.Submit("password-reset-email", func(ctx context.Context) error {
		return g.d.Mailer.SendPasswordReset(ctx, to, value)
	})
	return nil
}

// ConfirmPasswordReset sets a new password. The token is bound to the hash
// it was issued against, so it stops working once the password changes.
func (g *Gateway) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", common.ErrValidation)
	}

	id, fingerprint, err := g.d.Issuer.ValidatePurpose(token, auth.PurposePasswordReset)
	if err != nil {
		return err
	}
	a, err := g.d.Accounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if a == nil || !a.IsActive || fingerprint != cryptox.Fingerprint(a.PasswordHash) {
		return common.ErrInvalidToken
	}

	if err := g.d.Accounts.SetPassword(ctx, a.ID, password); err != nil {
		return err
	}
	g.log.Info(ctx, "password reset", "account_id", a.ID)
	return nil
}

// RequestVerify mails a verification token. Unknown, inactive and already
// verified addresses get a silent success.
func (g *Gateway) RequestVerify(ctx context.Context, email string) error {
	a, err := g.d.Accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if a == nil || !a.IsActive || a.IsVerified {
		return nil
	}
	g.d.Dispatcher.Submit("verification-email", verificationTask(g.d.Issuer, g.d.Mailer, a))
	return nil
}

// ConfirmVerify marks the token's account verified. Verifying twice yields
// common.ErrAlreadyExists.
func (g *Gateway) ConfirmVerify(ctx context.Context, token string) (*models.Account, error) {
	id, _, err := g.d.Issuer.ValidatePurpose(token, auth.PurposeEmailVerify)
	if err != nil {
		return nil, err
	}
	a, err := g.d.Accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || !a.IsActive {
		return nil, common.ErrInvalidToken
	}
	if a.IsVerified {
		return nil, fmt.Errorf("%w: account already verified", common.ErrAlreadyExists)
	}

	verified := true
	if err := g.d.Accounts.UpdateFields(ctx, a.ID, models.AccountPatch{IsVerified: &verified}); err != nil {
		return nil, err
	}
	a.IsVerified = true
	return a, nil
}

// Invite lets an account invite someone. Invites targeting an archive may
// address existing accounts; plain invites may not.
func (g *Gateway) Invite(ctx context.Context, inviter *models.Account, req models.InviteRequest) (*models.Invite, error) {
	return g.d.Ledger.InviteUser(ctx, req, inviter, req.ArchiveID != nil)
}

func (g *Gateway) AcceptInvite(ctx context.Context, account *models.Account, token string) (*models.ArchiveMember, error) {
	return g.d.Archives.HandleExistingUserInvite(ctx, token, account)
}

func (g *Gateway) ListInvites(ctx context.Context, account *models.Account) ([]models.Invite, error) {
	return g.d.Ledger.ListPending(ctx, account.ID)
}

func (g *Gateway) UserNames(ctx context.Context, ids []string) ([]models.AccountName, error) {
	return g.d.Accounts.FindManyNames(ctx, ids)
}

// Me reloads the account so the caller sees current flags.
func (g *Gateway) Me(ctx context.Context, accountID string) (*models.Account, error) {
	a, err := g.d.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, common.ErrorNotFound
	}
	return a, nil
}
