package bootstrap

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"worklog-server-go/internal/domain/audit"
	"worklog-server-go/internal/domain/auth"
	"worklog-server-go/internal/domain/auth/model"
	"worklog-server-go/internal/domain/eventbus"
	"worklog-server-go/internal/domain/session"
	sessionstore "worklog-server-go/internal/domain/session/store"
	"worklog-server-go/internal/platform/config"
	"worklog-server-go/internal/platform/errors"
	"worklog-server-go/internal/platform/logging"
	"worklog-server-go/internal/platform/observability"
	"worklog-server-go/internal/platform/storage"
	"worklog-server-go/internal/transport/web"
	"worklog-server-go/internal/transport/ws"
)

// App owns every long-lived component. Construction is staged: storage first,
// then the domain services over it, then the transports. Teardown runs in
// reverse.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	db       *storage.Database
	bus      *eventbus.Bus
	sessions *session.Manager
	auth     *auth.Service
	recorder *audit.Recorder

	webServer *web.Server
	wsServer  *ws.Server

	obsShutdown observability.ShutdownFunc
}

// New builds the application from configuration.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	const op = "bootstrap.New"
	app := &App{cfg: cfg, logger: logger}

	obsShutdown, err := observability.Setup(ctx, observability.Config{Enabled: cfg.Observability.Enabled}, logger.Slog())
	if err != nil {
		return nil, errors.Wrap(errors.KindBootstrap, op, "observability setup failed", err)
	}
	app.obsShutdown = obsShutdown

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	app.db = db
	logger.InfoTag("Boot", "database ready at %s", cfg.Database.DSN)

	app.bus = eventbus.New(4)

	sessStore, err := sessionstore.New(sessionstore.Config{
		Driver: cfg.SessionStore.Driver,
		Redis: &sessionstore.RedisConfig{
			Addr:     cfg.SessionStore.Redis.Addr,
			Username: cfg.SessionStore.Redis.Username,
			Password: cfg.SessionStore.Redis.Password,
			DB:       cfg.SessionStore.Redis.DB,
			Prefix:   cfg.SessionStore.Redis.Prefix,
		},
	}, sessionstore.Dependencies{GormDB: db.Gorm()})
	if err != nil {
		app.close()
		return nil, errors.Wrap(errors.KindBootstrap, op, "session store construction failed", err)
	}

	sessions, err := session.NewManager(session.Options{
		Store:            sessStore,
		Logger:           logger,
		SessionLifetime:  cfg.Security.SessionLifetime,
		InactivityWindow: cfg.Security.InactivityWindow,
		CleanupInterval:  cfg.Security.CleanupInterval,
	})
	if err != nil {
		app.close()
		return nil, errors.Wrap(errors.KindBootstrap, op, "session manager construction failed", err)
	}
	app.sessions = sessions
	logger.InfoTag("Boot", "session store driver %q ready", cfg.SessionStore.Driver)

	sink, err := audit.NewGormSink(db.Gorm())
	if err != nil {
		app.close()
		return nil, errors.Wrap(errors.KindBootstrap, op, "audit sink construction failed", err)
	}
	app.recorder = audit.NewRecorder(sink, logger, app.bus)

	authService, tokens, err := buildAuth(app, cfg)
	if err != nil {
		app.close()
		return nil, err
	}
	app.auth = authService

	if err := buildTransports(app, cfg, tokens); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func buildAuth(app *App, cfg *config.Config) (*auth.Service, *auth.Codec, error) {
	const op = "bootstrap.buildAuth"

	repo, err := auth.NewRepository(app.db.Gorm())
	if err != nil {
		return nil, nil, errors.Wrap(errors.KindBootstrap, op, "repository construction failed", err)
	}
	verifier, err := auth.NewVerifier(repo, app.logger, cfg.Security.BcryptCost)
	if err != nil {
		return nil, nil, errors.Wrap(errors.KindBootstrap, op, "verifier construction failed", err)
	}
	attempts, err := auth.NewGormAttemptLog(app.db.Gorm())
	if err != nil {
		return nil, nil, errors.Wrap(errors.KindBootstrap, op, "attempt log construction failed", err)
	}

	// A missing signing secret is a refusal to start, not a degraded mode.
	tokens, err := auth.NewCodec(cfg.Security.TokenSecret)
	if err != nil {
		return nil, nil, errors.Wrap(errors.KindBootstrap, op, "token codec construction failed", err)
	}
	tokens.WithTTL(cfg.Security.TokenTTL)

	service, err := auth.NewService(auth.Options{
		Repository: repo,
		Verifier:   verifier,
		Lockout:    auth.NewTracker(attempts, app.logger),
		Sessions:   app.sessions,
		Tokens:     tokens,
		Audit:      app.recorder,
		Bus:        app.bus,
		Policy: model.Policy{
			MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
			LockoutWindow:    cfg.Security.LockoutWindow,
			InactivityWindow: cfg.Security.InactivityWindow,
			SessionLifetime:  cfg.Security.SessionLifetime,
		},
		Logger: app.logger,
	})
	if err != nil {
		return nil, nil, errors.Wrap(errors.KindBootstrap, op, "auth service construction failed", err)
	}
	return service, tokens, nil
}

func buildTransports(app *App, cfg *config.Config, tokens *auth.Codec) error {
	const op = "bootstrap.buildTransports"

	handlers, err := web.NewHandlers(web.HandlerOptions{
		Auth:     app.auth,
		Sessions: app.sessions,
		Database: app.db,
		Logger:   app.logger,
	})
	if err != nil {
		return errors.Wrap(errors.KindBootstrap, op, "handler construction failed", err)
	}

	router, err := web.BuildRouter(web.RouterOptions{
		Handlers: handlers,
		Gate: web.RequestGate(web.GateOptions{
			Tokens:   tokens,
			Sessions: app.sessions,
			Audit:    app.recorder,
			Logger:   app.logger,
		}),
		ExternalGate: web.ExternalClientGate(cfg.Security.ExternalClientKey, app.recorder, app.logger),
		Logger:       app.logger,
		StaticDir:    cfg.Web.StaticDir,
	})
	if err != nil {
		return errors.Wrap(errors.KindBootstrap, op, "router construction failed", err)
	}
	app.webServer = web.NewServer(fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Web.Port), router, app.logger)

	wsServer, err := ws.NewServer(ws.Options{
		Addr:   fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Server.Port),
		Gate:   ws.NewGate(tokens, app.sessions),
		Hub:    ws.NewHub(),
		Audit:  app.recorder,
		Bus:    app.bus,
		Logger: app.logger,
	})
	if err != nil {
		return errors.Wrap(errors.KindBootstrap, op, "realtime server construction failed", err)
	}
	app.wsServer = wsServer
	return nil
}

// Run serves both transports until the context is cancelled or one of them
// fails.
func (a *App) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	if a.cfg.Web.Enabled {
		group.Go(func() error { return a.webServer.Run(groupCtx) })
	} else {
		a.logger.WarnTag("Boot", "HTTP API disabled by configuration")
	}
	group.Go(func() error { return a.wsServer.Run(groupCtx) })

	err := group.Wait()
	a.close()
	return err
}

// close tears components down in reverse construction order. Safe on a
// partially constructed App.
func (a *App) close() {
	if a.bus != nil {
		a.bus.Shutdown()
		a.bus = nil
	}
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			a.logger.Error("session manager close failed: %v", err)
		}
		a.sessions = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("database close failed: %v", err)
		}
		a.db = nil
	}
	if a.obsShutdown != nil {
		_ = a.obsShutdown(context.Background())
		a.obsShutdown = nil
	}
}
