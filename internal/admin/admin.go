// Package admin implements the operator commands that act on the gatekeeper
// database directly: bootstrapping superusers and minting invites without
// going through the HTTP API.
package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/mailer"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/sethvargo/go-password/password"
)

const (
	generatedLength  = 20
	generatedDigits  = 4
	generatedSymbols = 4
)

var (
	ErrUsage          = errors.New("usage: gatekeeper-admin <create-superuser|create-invite> [flags]")
	ErrUnknownCommand = errors.New("unknown command")
)

// generatePassword is a test seam for password.Generate.
var generatePassword = func() (string, error) {
	return password.Generate(generatedLength, generatedDigits, generatedSymbols, false, false)
}

// Tool runs admin commands against one repository manager.
type Tool struct {
	repomanager repomanager.RepositoryManager
	accounts    *services.AccountStore
	ledger      *services.InviteLedger
	links       mailer.Links
	out         io.Writer
}

// NewTool wires the account store and invite ledger over m. Invites minted
// here are printed, never emailed.
func NewTool(m repomanager.RepositoryManager, cfg *config.Config, params cryptox.Params, out io.Writer) *Tool {
	accounts := services.NewAccountStore(m, params)
	return &Tool{
		repomanager: m,
		accounts:    accounts,
		ledger:      services.NewInviteLedger(m, accounts, nil, nil, cfg.InviteLifetime, logging.Nop{}),
		links:       mailer.Links{Origin: cfg.AppOrigin},
		out:         out,
	}
}

// Run executes args[0] as a command. Server flags such as -d and -c are
// honoured alongside the command's own flags.
func Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "create-superuser", "create-invite":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}

	cfg := config.Load(rest)
	m, db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	tool := NewTool(m, cfg, cryptox.DefaultParams, out)
	if cmd == "create-superuser" {
		return tool.CreateSuperuser(ctx, rest)
	}
	return tool.CreateInvite(ctx, rest)
}

// CreateSuperuser creates a verified superuser account.
//
//	-email string   account email (required)
//	-name string    display name, defaults to the email
//	-generate       generate a password instead of prompting
//
// An empty password at the prompt also generates one. Generated passwords
// are printed once.
func (t *Tool) CreateSuperuser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-superuser", flag.ContinueOnError)
	fs.SetOutput(t.out)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	generate := fs.Bool("generate", false, "generate a password")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-name", "-generate"})); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return fmt.Errorf("%w: -email is required", common.ErrValidation)
	}

	existing, err := t.accounts.FindByEmail(ctx, *email)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", common.ErrDuplicateEmail, existing.Email)
	}

	var secret string
	if !*generate {
		pw, err := GetPassword(t.out, "Enter password (empty to generate): ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		secret = strings.TrimSpace(string(pw))
		common.WipeByteArray(pw)
	}
	generated := secret == ""
	if generated {
		if secret, err = generatePassword(); err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
	}

	acct, err := t.accounts.Create(ctx, models.AccountCreate{
		Email:       *email,
		Password:    secret,
		Name:        *name,
		IsSuperuser: true,
	})
	if err != nil {
		return err
	}

	verified := true
	if err := t.accounts.UpdateFields(ctx, acct.ID, models.AccountPatch{IsVerified: &verified}); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	fmt.Fprintf(t.out, "created superuser %s (%s)\n", acct.Email, acct.ID)
	if generated {
		fmt.Fprintf(t.out, "password: %s\n", secret)
	}
	return nil
}

// CreateInvite mints a new-account invite and prints its link.
//
//	-email string     bind the invite to one address
//	-archive string   grant membership of this archive on redemption
//	-role string      membership role, defaults to viewer
func (t *Tool) CreateInvite(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-invite", flag.ContinueOnError)
	fs.SetOutput(t.out)
	email := fs.String("email", "", "invitee email")
	archive := fs.String("archive", "", "archive id")
	role := fs.String("role", "", "archive role")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-archive", "-role"})); err != nil {
		return err
	}

	scope := models.InviteScope{Kind: models.InviteNewAccount}
	if *archive != "" {
		a, err := t.repomanager.Archives(t.repomanager.Conn()).Get(ctx, *archive)
		if err != nil {
			return fmt.Errorf("archive %s: %w", *archive, err)
		}
		scope.ResourceID = &a.ID
	}

	inv, err := t.ledger.CreateInvite(ctx, scope, *email, *role, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(t.out, "invite: %s\n", inv.Token)
	fmt.Fprintf(t.out, "link: %s\n", t.links.InviteURL(inv.Token))
	if inv.ExpiresAt != nil {
		fmt.Fprintf(t.out, "expires: %s\n", inv.ExpiresAt.Format("2006-01-02 15:04 MST"))
	}
	return nil
}
