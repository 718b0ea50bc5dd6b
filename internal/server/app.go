// Package server wires configuration, storage, the directory client and the
// login services together and runs the gRPC endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/dirauth/internal/logging"
	"github.com/dmitrijs2005/dirauth/internal/server/config"
	"github.com/dmitrijs2005/dirauth/internal/server/directory"
	"github.com/dmitrijs2005/dirauth/internal/server/events"
	"github.com/dmitrijs2005/dirauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dirauth/internal/server/services"

	gs "github.com/dmitrijs2005/dirauth/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	dispatcher *services.AuthDispatcher
	sessions   *services.SessionService
	accounts   *services.AccountService
}

// NewApp opens and migrates the database and builds the login services.
// A directory client may be passed for tests; nil means LDAP from config.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, dir directory.Client) (*App, error) {
	db, err := repomanager.Open(c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, dir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, dir directory.Client) (*App, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	if dir == nil {
		dir = directory.NewLDAPClient(c.LDAP)
	}

	sessions := services.NewSessionService(db, rm, c)
	sink := events.NewLogSink(logger.With("module", "registration"))
	reconciler := services.NewIdentityReconciler(db, rm, sink, c)
	local := services.NewLocalAuthenticator(db, rm, sessions)
	accounts := services.NewAccountService(db, rm, sink, c)

	dispatcher, err := services.NewAuthDispatcher(c, dir, reconciler, sessions, local)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger.Info(ctx, "Login configured",
		"directory", c.LDAP.ServerURL, "fallback", dispatcher.Fallback().String(), "driver", c.DatabaseDriver,
		"registration", c.AllowRegistration)

	return &App{config: c, logger: logger, db: db, dispatcher: dispatcher, sessions: sessions, accounts: accounts}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves gRPC until ctx is cancelled or a termination signal arrives,
// then closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.dispatcher, app.sessions, app.accounts, app.config.SecretKey)
	runErr := s.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, runErr.Error())
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	return runErr
}
