package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/portal/internal/auth/http"
	"github.com/aussiebroadwan/portal/internal/auth/service"
	"github.com/aussiebroadwan/portal/internal/auth/store"
	"github.com/aussiebroadwan/portal/internal/auth/store/drivers/memory"
	otpredis "github.com/aussiebroadwan/portal/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/portal/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/portal/pkg/cryptox"
	"github.com/aussiebroadwan/portal/pkg/httpx"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
	"github.com/aussiebroadwan/portal/pkg/metricsx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	otpCodes store.OTPCodes
	redis    *goredis.Client // nil unless REDIS_ADDR is set
	codec    *jwtx.HS256Codec
	metrics  *metricsx.Metrics

	// Services
	userService         *service.UserService
	sessionService      *service.SessionService
	emailOTPService     *service.EmailOTPService
	authService         *service.AuthService
	mfaService          *service.MFAService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// Configuration problems are returned rather than logged so main can exit.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "portal-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metricsx.New("portal"),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := httpx.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	codec, err := jwtx.NewHS256Codec([]byte(cfg.Secret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session codec: %w", err)
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initOTPStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if cfg.SeedDemoUsers {
		if err := app.userService.SeedUsers(context.Background(), app.logger, service.DemoUsers); err != nil {
			_ = app.close()
			return nil, fmt.Errorf("failed to seed demo users: %w", err)
		}
	}

	if err := app.initHTTP(); err != nil {
		_ = app.close()
		return nil, err
	}

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"redis_otp", app.redis != nil,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.close()
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.close(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// close releases the stores.
func (app *Application) close() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured user store and applies migrations
func (app *Application) initDatabase() error {
	switch app.cfg.StoreDriver {
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	default:
		app.db = memory.NewStore()
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("user store ready", "driver", app.cfg.StoreDriver)
	return nil
}

// initOTPStore picks where pending email codes live. Redis lets several
// instances share them; otherwise they stay in the user store.
func (app *Application) initOTPStore() error {
	if app.cfg.RedisAddr == "" {
		app.otpCodes = app.db.OTPCodes()
		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
	}

	app.redis = client
	app.otpCodes = otpredis.NewOTPCodes(client, "")
	app.logger.Info("email codes stored in redis", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.userService = &service.UserService{Store: app.db}
	app.sessionService = &service.SessionService{
		Codec: app.codec,
		TTL:   app.cfg.SessionTTL,
	}
	app.emailOTPService = service.NewEmailOTPService(app.otpCodes)
	app.authService = &service.AuthService{
		Users:    app.userService,
		EmailOTP: app.emailOTPService,
		Sessions: app.sessionService,
		Mailer:   service.LogMailer{},
	}
	app.mfaService = &service.MFAService{
		Users:  app.userService,
		Issuer: app.cfg.MFAIssuer,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.emailOTPService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	router := httpapi.NewRouter(app.codec, BuildVersion, app.logger)

	router.UserService = app.userService
	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.Metrics = app.metrics
	router.UserStore = app.db
	if pinger, ok := app.otpCodes.(httpapi.Pinger); ok && app.redis != nil {
		router.OTPStore = pinger
	}
	router.SecureCookies = app.cfg.IsProduction()
	router.ExposeOTPHint = !app.cfg.IsProduction()

	var upstream *url.URL
	if app.cfg.PortalUpstream != "" {
		u, err := url.Parse(app.cfg.PortalUpstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid PORTAL_UPSTREAM %q", app.cfg.PortalUpstream)
		}
		upstream = u
	}
	router.Portal = httpapi.PortalHandler(upstream)

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
