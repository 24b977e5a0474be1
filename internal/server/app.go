// Package server wires the gatekeeper components together and runs the
// HTTP API, the gRPC health endpoint and background maintenance until a
// shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/mailer"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/storage"
	"github.com/dmitrijs2005/gatekeeper/internal/server/worker"

	gs "github.com/dmitrijs2005/gatekeeper/internal/server/grpc"
	hs "github.com/dmitrijs2005/gatekeeper/internal/server/http"
)

const (
	invitePurgeInterval = time.Hour
	healthCheckInterval = 15 * time.Second
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	logCloser  io.Closer
	db         *sql.DB
	dispatcher *worker.Dispatcher
	ledger     *services.InviteLedger
	gateway    *services.Gateway
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, logCloser := logging.New(logging.Options{File: c.LogFile, Level: c.LogLevel})

	rm, db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	secret := []byte(c.SecretKey)
	if len(secret) == 0 {
		logger.Warn(ctx, "no secret key configured, using an ephemeral one: tokens will not survive a restart")
		secret = auth.EphemeralSecret()
	}
	issuer := auth.NewIssuer(secret, c.BearerTokenLifetime, c.PurposeTokenLifetime)

	links := mailer.Links{Origin: c.AppOrigin}
	var sender services.EmailSender
	if c.SMTPHost == "" {
		logger.Warn(ctx, "no SMTP host configured, emails will only be logged")
		sender = mailer.NewLogSender(links, logger)
	} else {
		sender = mailer.NewSMTPSender(mailer.SmtpConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			User:     c.SMTPUser,
			Password: c.SMTPPassword,
			From:     c.SMTPFrom,
		}, links, logger)
	}

	var store services.ObjectStore = storage.Discard{}
	if c.S3Bucket != "" {
		store = storage.NewS3Store(storage.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	}

	dispatcher := worker.New(c.EmailWorkers, c.EmailQueueSize, c.CollaboratorTimeout, logger)

	accounts := services.NewAccountStore(rm, cryptox.DefaultParams)
	ledger := services.NewInviteLedger(rm, accounts, sender, dispatcher, c.InviteLifetime, logger)
	archives := services.NewArchiveService(rm, ledger, store, logger)
	registrar := services.NewRegistrar(accounts, ledger, archives, issuer, sender, dispatcher,
		services.RegistrarConfig{
			RegistrationEnabled: c.RegistrationEnabled,
			CollaboratorTimeout: c.CollaboratorTimeout,
		}, logger)

	gateway := services.NewGateway(services.GatewayDeps{
		Accounts:   accounts,
		Ledger:     ledger,
		Archives:   archives,
		Registrar:  registrar,
		Issuer:     issuer,
		Mailer:     sender,
		Dispatcher: dispatcher,
		Log:        logger,
	})

	return &App{
		config:     c,
		logger:     logger,
		logCloser:  logCloser,
		db:         db,
		dispatcher: dispatcher,
		ledger:     ledger,
		gateway:    gateway,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := hs.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.gateway)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHealthServer(ctx context.Context, cancelFunc context.CancelFunc) {
	var pinger gs.Pinger
	if app.db != nil {
		pinger = app.db
	}
	s := gs.NewHealthServer(app.config.EndpointAddrHealth, app.logger, pinger, healthCheckInterval)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) purgeInvites(ctx context.Context) {
	t := time.NewTicker(invitePurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if _, err := app.ledger.PurgeExpired(ctx, now); err != nil {
				app.logger.Error(ctx, "invite purge failed", "error", err)
			}
		}
	}
}

// Run blocks until a signal arrives or a server fails, then drains the
// background queue and releases resources.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	for _, fn := range []func(context.Context, context.CancelFunc){app.startHTTPServer, app.startHealthServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx, cancelFunc)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.purgeInvites(ctx)
	}()

	wg.Wait()

	app.dispatcher.Close()
	if app.db != nil {
		_ = app.db.Close()
	}
	app.logger.Info(context.Background(), "App stopped")
	_ = app.logCloser.Close()
}
