// Package runtime turns a loaded configuration into a running server: it
// opens storage, wires the application and owns the HTTP server lifecycle.
package runtime

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	app "github.com/flockhq/flock/internal/app"
	"github.com/flockhq/flock/internal/app/cache"
	"github.com/flockhq/flock/internal/app/httpapi"
	"github.com/flockhq/flock/internal/app/jobs"
	"github.com/flockhq/flock/internal/app/services/auth"
	"github.com/flockhq/flock/internal/app/services/sermonhelper"
	"github.com/flockhq/flock/internal/app/storage/postgres"
	"github.com/flockhq/flock/internal/config"
	"github.com/flockhq/flock/internal/middleware"
	"github.com/flockhq/flock/internal/platform/database"
	"github.com/flockhq/flock/internal/platform/migrations"
	"github.com/flockhq/flock/pkg/logger"
)

// MinSecretLength is the shortest decoded JWT signing secret accepted.
const MinSecretLength = 32

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sqlx.DB
	closers    []io.Closer
}

// NewApplication builds the application described by cfg. With the postgres
// driver it connects and, when enabled, applies pending migrations first.
func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("runtime")
	}
	secret, err := parseSecret(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("auth.jwt_secret: %w", err)
	}

	a := &Application{cfg: cfg, log: log}
	stores, err := a.buildStores(ctx)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	opts := app.Options{
		Auth: auth.Config{
			Secret:     secret,
			Issuer:     cfg.Auth.Issuer,
			TokenTTL:   cfg.Auth.TokenTTL,
			BcryptCost: cfg.Auth.BcryptCost,
		},
		CacheTTL:     cfg.Redis.CacheTTL,
		OutputBudget: cfg.SermonHelper.OutputBudget,
		Jobs: jobs.Config{
			PrayerExpirySpec:     cfg.Jobs.PrayerExpirySpec,
			UsagePruneSpec:       cfg.Jobs.UsagePruneSpec,
			UsageRetentionMonths: cfg.Jobs.UsageRetentionMonths,
		},
		JobsEnabled: cfg.Jobs.Enabled,
	}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.closeAll()
			return nil, err
		}
		a.closers = append(a.closers, rc)
		opts.Cache = rc
		log.WithField("addr", cfg.Redis.Addr).Info("render cache using redis")
	}
	if cfg.SermonHelper.Endpoint != "" {
		opts.Suggester = sermonhelper.NewHTTPSuggester(sermonhelper.HTTPConfig{
			Endpoint: cfg.SermonHelper.Endpoint,
			APIKey:   cfg.SermonHelper.APIKey,
			Timeout:  cfg.SermonHelper.Timeout,
		})
		log.WithField("endpoint", cfg.SermonHelper.Endpoint).Info("sermon helper using remote suggester")
	}

	application, err := app.New(stores, opts, log)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	a.app = application

	handlerOpts := httpapi.Options{
		PlatformToken:  cfg.Auth.PlatformToken,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Ready:          a.ready,
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		if err := application.Attach(limiter); err != nil {
			a.closeAll()
			return nil, err
		}
		handlerOpts.RateLimiter = limiter
	}
	sinks, err := a.auditSinks(stores)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	handlerOpts.Audit = httpapi.NewAuditLog(cfg.Audit.BufferSize, log, sinks...)

	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           httpapi.NewHandler(application, handlerOpts, log),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return a, nil
}

// App exposes the wired services, e.g. for seeding from the CLI.
func (a *Application) App() *app.Application {
	return a.app
}

// Handler returns the HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts background services and the HTTP server, blocking until ctx is
// cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown drains the HTTP server, stops background services and closes
// storage connections.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.app != nil {
		if err := a.app.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closeAll()
	return errors.Join(errs...)
}

func (a *Application) buildStores(ctx context.Context) (app.Stores, error) {
	if strings.EqualFold(a.cfg.Database.Driver, "memory") {
		a.log.Warn("using in-memory storage; data is lost on restart")
		return app.Stores{}, nil
	}

	db, err := database.Open(ctx, a.cfg.Database)
	if err != nil {
		return app.Stores{}, err
	}
	a.db = db
	a.closers = append(a.closers, db)

	if a.cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db.DB, a.log); err != nil {
			return app.Stores{}, err
		}
	}

	store := postgres.New(db)
	return app.Stores{
		Tenants:    store,
		Users:      store,
		People:     store,
		Bulletins:  store,
		Sermons:    store,
		Attendance: store,
		Prayer:     store,
		Donations:  store,
		Settings:   store,
		Usage:      store,
		Audit:      store,
	}, nil
}

func (a *Application) auditSinks(stores app.Stores) ([]httpapi.AuditSink, error) {
	var sinks []httpapi.AuditSink
	if path := a.cfg.Audit.FilePath; path != "" {
		fs, err := httpapi.NewFileAuditSink(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, fs)
		sinks = append(sinks, fs)
	}
	if a.cfg.Audit.Persist && stores.Audit != nil {
		sinks = append(sinks, httpapi.NewStoreAuditSink(stores.Audit))
	}
	return sinks, nil
}

func (a *Application) ready(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return a.db.PingContext(pingCtx)
}

func (a *Application) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.WithError(err).Warn("error closing resource")
		}
	}
	a.closers = nil
}

// parseSecret accepts the signing secret as raw text or with a "base64:" or
// "hex:" prefix. The decoded value must be at least MinSecretLength bytes.
func parseSecret(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("missing secret")
	}

	var (
		secret []byte
		err    error
	)
	switch {
	case strings.HasPrefix(value, "base64:"):
		secret, err = base64.StdEncoding.DecodeString(strings.TrimPrefix(value, "base64:"))
	case strings.HasPrefix(value, "hex:"):
		secret, err = hex.DecodeString(strings.TrimPrefix(value, "hex:"))
	default:
		secret = []byte(value)
	}
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("must decode to at least %d bytes", MinSecretLength)
	}
	return secret, nil
}
