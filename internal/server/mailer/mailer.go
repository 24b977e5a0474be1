// Package mailer delivers account emails: verification links, password
// reset links and invitations.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Links renders the frontend URLs embedded in outgoing messages.
type Links struct {
	Origin string
}

func (l Links) link(path, token string) string {
	return l.Origin + path + "?token=" + url.QueryEscape(token)
}

// InviteURL is the page where an invite token is redeemed.
func (l Links) InviteURL(token string) string {
	return l.link("/join", token)
}

func verificationMessage(l Links, to, token string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email address",
		Body: fmt.Sprintf("<p>Please verify your email address by following this link:</p>"+
			"<p><a href=\"%[1]s\">%[1]s</a></p>", l.link("/verify", token)),
	}
}

func passwordResetMessage(l Links, to, token string) Message {
	return Message{
		To:      to,
		Subject: "Password reset",
		Body: fmt.Sprintf("<p>A password reset was requested for this address. "+
			"If that was you, follow this link:</p><p><a href=\"%[1]s\">%[1]s</a></p>", l.link("/reset-password", token)),
	}
}

func inviteMessage(l Links, to, token, inviter string) Message {
	who := inviter
	if who == "" {
		who = "Someone"
	}
	return Message{
		To:      to,
		Subject: "You have been invited",
		Body: fmt.Sprintf("<p>%[1]s invited you to join. Accept the invitation here:</p>"+
			"<p><a href=\"%[2]s\">%[2]s</a></p>", who, l.InviteURL(token)),
	}
}

// SMTPSender sends through an SMTP relay, retrying transient failures.
type SMTPSender struct {
	cfg      SmtpConfig
	links    Links
	log      logging.Logger
	attempts uint
	delay    time.Duration

	// send is a seam over email.Email.Send.
	send func(e *email.Email) error
}

func NewSMTPSender(cfg SmtpConfig, links Links, log logging.Logger) *SMTPSender {
	s := &SMTPSender{
		cfg:      cfg,
		links:    links,
		log:      log.With("module", "mailer"),
		attempts: 3,
		delay:    500 * time.Millisecond,
	}

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	s.send = func(e *email.Email) error {
		return e.Send(addr, auth)
	}
	return s
}

func (s *SMTPSender) deliver(ctx context.Context, m Message) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{m.To}
	e.Subject = m.Subject
	e.HTML = []byte(m.Body)

	err := retry.Do(
		func() error { return s.send(e) },
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warn(ctx, "smtp send failed, retrying", "attempt", n+1, "to", m.To, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("send %q to %s: %w", m.Subject, m.To, err)
	}
	s.log.Info(ctx, "email sent", "to", m.To, "subject", m.Subject)
	return nil
}

func (s *SMTPSender) SendVerification(ctx context.Context, to, token string) error {
	return s.deliver(ctx, verificationMessage(s.links, to, token))
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, token string) error {
	return s.deliver(ctx, passwordResetMessage(s.links, to, token))
}

func (s *SMTPSender) SendInvite(ctx context.Context, to, token, inviter string) error {
	return s.deliver(ctx, inviteMessage(s.links, to, token, inviter))
}

// LogSender writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogSender struct {
	links Links
	log   logging.Logger
}

func NewLogSender(links Links, log logging.Logger) *LogSender {
	return &LogSender{links: links, log: log.With("module", "mailer")}
}

func (s *LogSender) write(ctx context.Context, m Message) error {
	s.log.Info(ctx, "email not sent, smtp disabled", "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}

func (s *LogSender) SendVerification(ctx context.Context, to, token string) error {
	return s.write(ctx, verificationMessage(s.links, to, token))
}

func (s *LogSender) SendPasswordReset(ctx context.Context, to, token string) error {
	return s.write(ctx, passwordResetMessage(s.links, to, token))
}

func (s *LogSender) SendInvite(ctx context.Context, to, token, inviter string) error {
	return s.write(ctx, inviteMessage(s.links, to, token, inviter))
}
