package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrValidation)
	}
	return nil
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newTokenResponse(t auth.Token) tokenResponse {
	return tokenResponse{AccessToken: t.Value, TokenType: "bearer", ExpiresAt: t.ExpiresAt}
}

type credentials struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type tokenRequest struct {
	Token    string `json:"token"`
	Password string `json:"password,omitempty"`
}

type namesRequest struct {
	IDs []string `json:"ids"`
}

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var in models.AccountCreate
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	a, err := s.gateway.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// login accepts either a JSON body or the OAuth2 password form, where the
// email travels as "username".
func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: malformed form", common.ErrValidation))
			return
		}
		c.Username = r.PostForm.Get("username")
		c.Password = r.PostForm.Get("password")
	} else if err := decode(w, r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}

	email := c.Email
	if email == "" {
		email = c.Username
	}

	tok, err := s.gateway.Login(r.Context(), email, c.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(tok))
}

func (s *HTTPServer) refresh(w http.ResponseWriter, r *http.Request) {
	tok, err := s.gateway.Refresh(r.Context(), bearerToken(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(tok))
}

func (s *HTTPServer) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.gateway.RequestPasswordReset(r.Context(), in.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{})
}

func (s *HTTPServer) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.gateway.ConfirmPasswordReset(r.Context(), in.Token, in.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *HTTPServer) requestVerify(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.gateway.RequestVerify(r.Context(), in.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{})
}

func (s *HTTPServer) verify(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.gateway.ConfirmVerify(r.Context(), in.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	a, err := s.gateway.Me(r.Context(), accountFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *HTTPServer) invite(w http.ResponseWriter, r *http.Request) {
	var in models.InviteRequest
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	inv, err := s.gateway.Invite(r.Context(), accountFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *HTTPServer) acceptInvite(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.gateway.AcceptInvite(r.Context(), accountFrom(r.Context()), in.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *HTTPServer) listInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.gateway.ListInvites(r.Context(), accountFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invites": invites})
}

func (s *HTTPServer) userNames(w http.ResponseWriter, r *http.Request) {
	var in namesRequest
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	names, err := s.gateway.UserNames(r.Context(), in.IDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": names})
}
