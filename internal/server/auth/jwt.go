// Package auth issues and validates the stateless tokens gatekeeper hands
// out: bearer tokens for authenticated requests and purpose tokens that
// authorize a single follow-up action (password reset, email verification).
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose scopes a purpose token to one workflow.
type Purpose string

const (
	PurposePasswordReset Purpose = "password_reset"
	PurposeEmailVerify   Purpose = "email_verify"
)

const (
	audiencePrefix = "gatekeeper:"
	bearerAudience = audiencePrefix + "auth"
)

// Claims are the registered claims plus an optional fingerprint of the
// credential a purpose token was issued against.
type Claims struct {
	jwt.RegisteredClaims
	Fingerprint string `json:"fgp,omitempty"`
}

// Token is a signed token and the instant it stops being valid.
type Token struct {
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer signs and validates tokens with a single HMAC secret. It holds no
// mutable state and is safe for concurrent use.
type Issuer struct {
	secret          []byte
	bearerLifetime  time.Duration
	purposeLifetime time.Duration
	now             func() time.Time
}

// NewIssuer returns an Issuer signing with secret.
func NewIssuer(secret []byte, bearerLifetime, purposeLifetime time.Duration) *Issuer {
	return &Issuer{
		secret:          secret,
		bearerLifetime:  bearerLifetime,
		purposeLifetime: purposeLifetime,
		now:             time.Now,
	}
}

// EphemeralSecret returns 32 random bytes for deployments without a
// configured secret. Tokens signed with it die with the process.
func EphemeralSecret() []byte {
	return common.GenerateRandByteArray(32)
}

// IssueBearer signs {sub: accountID, exp: now+lifetime}.
func (i *Issuer) IssueBearer(accountID string) (Token, error) {
	return i.sign(accountID, bearerAudience, i.bearerLifetime, "")
}

// ValidateBearer returns the account id carried by a valid bearer token.
func (i *Issuer) ValidateBearer(token string) (string, error) {
	claims, err := i.parse(token, bearerAudience)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IssuePurpose signs a token usable only for purpose. fingerprint may be
// empty.
func (i *Issuer) IssuePurpose(accountID string, purpose Purpose, fingerprint string) (Token, error) {
	return i.sign(accountID, audiencePrefix+string(purpose), i.purposeLifetime, fingerprint)
}

// ValidatePurpose returns the account id and fingerprint of a token issued
// for purpose. Wrong purpose, bad signature, malformed input and expiry are
// indistinguishable to the caller.
func (i *Issuer) ValidatePurpose(token string, purpose Purpose) (string, string, error) {
	claims, err := i.parse(token, audiencePrefix+string(purpose))
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Fingerprint, nil
}

func (i *Issuer) sign(subject, audience string, lifetime time.Duration, fingerprint string) (Token, error) {
	now := i.now()
	exp := now.Add(lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Fingerprint: fingerprint,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

func (i *Issuer) parse(tokenString, audience string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
