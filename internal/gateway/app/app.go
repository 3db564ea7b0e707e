package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/denkrupka/portalgate/internal/gateway/http"
	"github.com/denkrupka/portalgate/internal/gateway/service"
	"github.com/denkrupka/portalgate/internal/gateway/store"
	"github.com/denkrupka/portalgate/internal/gateway/store/drivers/sqlite"
	"github.com/denkrupka/portalgate/internal/gateway/upstream"
	"github.com/denkrupka/portalgate/pkg/clockx"
	"github.com/denkrupka/portalgate/pkg/cryptox"
	"github.com/denkrupka/portalgate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the gateway with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	client *upstream.Client

	sessions   *service.Sessions
	challenges *service.ChallengeRegistry
	refresher  *service.Refresher
	gateway    *service.Gateway

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "portal-gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("GATEWAY_UPSTREAM_URL is required")
	}

	// Set the master key path for sealing credentials at rest
	cryptox.SetMasterKeyPath(cfg.MasterKeyPath)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	ctx := context.Background()

	// Load the snapshot and bring every persisted session back to life
	// with a forced refresh before taking traffic; a long outage leaves
	// every jar stale.
	if err := app.sessions.Hydrate(ctx); err != nil {
		return fmt.Errorf("failed to hydrate sessions: %w", err)
	}
	app.refresher.RefreshAll(ctx, true)

	app.sessions.Start()
	app.refresher.Start()

	app.logger.Info("gateway starting", "port", app.cfg.Port, "version", BuildVersion, "upstream", app.cfg.UpstreamURL)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the workers; Sessions.Stop performs the final snapshot flush
	app.refresher.Stop()
	app.sessions.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gateway stopped")
	return nil
}

// initDatabase initializes the snapshot database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes the portal client and business services.
func (app *Application) initServices() {
	clock := clockx.Real{}

	app.client = upstream.NewClient(app.cfg.UpstreamURL)
	if app.cfg.UpstreamTimeout > 0 {
		app.client.HTTPClient.Timeout = app.cfg.UpstreamTimeout
	}

	app.sessions = service.NewSessions(app.db, app.logger, app.cfg.FlushInterval)
	app.challenges = service.NewChallengeRegistry(clock, app.cfg.ChallengeTTL)
	app.refresher = service.NewRefresher(app.sessions, app.client, clock, app.logger, app.cfg.RefreshInterval)
	app.gateway = service.NewGateway(app.sessions, app.challenges, app.client, app.refresher, clock, app.logger)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.gateway, BuildVersion, app.logger)
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
