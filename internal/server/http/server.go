// Package http exposes the gateway over JSON/HTTP.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/gorilla/mux"
)

// Gateway is the service surface the handlers call.
type Gateway interface {
	Login(ctx context.Context, email, password string) (auth.Token, error)
	Authenticate(ctx context.Context, bearer string) (*models.Account, error)
	Refresh(ctx context.Context, bearer string) (auth.Token, error)
	Register(ctx context.Context, in models.AccountCreate) (*models.Account, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) error
	RequestVerify(ctx context.Context, email string) error
	ConfirmVerify(ctx context.Context, token string) (*models.Account, error)
	Invite(ctx context.Context, inviter *models.Account, req models.InviteRequest) (*models.Invite, error)
	AcceptInvite(ctx context.Context, account *models.Account, token string) (*models.ArchiveMember, error)
	ListInvites(ctx context.Context, account *models.Account) ([]models.Invite, error)
	UserNames(ctx context.Context, ids []string) ([]models.AccountName, error)
	Me(ctx context.Context, accountID string) (*models.Account, error)
}

type HTTPServer struct {
	address string
	gateway Gateway
	logger  logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, g Gateway) *HTTPServer {
	return &HTTPServer{
		address: address,
		gateway: g,
		logger:  l.With("module", "http_server"),
	}
}

// Handler builds the route table.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/register", s.register).Methods(http.MethodPost)
	a.HandleFunc("/jwt/login", s.login).Methods(http.MethodPost)
	a.HandleFunc("/jwt/refresh", s.refresh).Methods(http.MethodPost)
	a.HandleFunc("/forgot-password", s.forgotPassword).Methods(http.MethodPost)
	a.HandleFunc("/reset-password", s.resetPassword).Methods(http.MethodPost)
	a.HandleFunc("/request-verify-token", s.requestVerify).Methods(http.MethodPost)
	a.HandleFunc("/verify", s.verify).Methods(http.MethodPost)

	u := r.PathPrefix("/users").Subrouter()
	u.Use(s.requireAccount)
	u.HandleFunc("/me", s.me).Methods(http.MethodGet)
	u.HandleFunc("/invite", s.invite).Methods(http.MethodPost)
	u.HandleFunc("/invite/accept", s.acceptInvite).Methods(http.MethodPost)
	u.HandleFunc("/invites", s.listInvites).Methods(http.MethodGet)
	u.HandleFunc("/names", s.userNames).Methods(http.MethodPost)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
