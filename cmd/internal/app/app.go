// Package app wires the reelist server runtime: config, logging, metrics,
// persistence and the auth HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"reelist/cmd/identity"
	authapi "reelist/cmd/internal/auth/api"
	"reelist/cmd/internal/auth/reset"
	"reelist/cmd/internal/auth/session"
	"reelist/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Store is a small app-level lifecycle abstraction so DB-backed resources
// can be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore backs in-memory mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// App owns the HTTP server and the wiring between stores and services.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	sessions session.Store

	auth *authapi.Handler
	reg  *prometheus.Registry
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogPretty)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	st, dbPool, dbEnabled, users, sessStore, err := newStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	closeOnErr := func(err error) (*App, error) {
		_ = st.Close(context.Background())
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return closeOnErr(err)
	}
	resetCfg, err := reset.LoadConfigFromEnv()
	if err != nil {
		return closeOnErr(err)
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return closeOnErr(err)
	}
	apiCfg := authapi.LoadConfigFromEnv()

	tokens, err := session.NewHS256Manager(sessCfg)
	if err != nil {
		return closeOnErr(err)
	}

	sessionSvc := session.NewService(sessCfg, users, pwCfg, sessStore, tokens)
	resetSvc := reset.NewService(resetCfg, users, pwCfg, reset.LogSender{Log: log})

	reg := newMetricsRegistry()
	authHandler := authapi.NewHandler(log, apiCfg, users, sessionSvc, resetSvc, authapi.NewMetrics(reg))

	if !dbEnabled {
		if err := seedDevAdmin(context.Background(), cfg, users, pwCfg, log); err != nil {
			return closeOnErr(err)
		}
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		sessions:  sessStore,
		auth:      authHandler,
		reg:       reg,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth, a.reg)

	var handler http.Handler = WithSecurityHeaders(mux)
	if len(a.cfg.CORSAllowedOrigins) > 0 {
		handler = WithCORS(handler, a.cfg, a.log)
	}
	handler = WithRequestID(WithRequestLogging(handler, a.log))

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sweepExpiredTokens(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

// sweepExpiredTokens purges expired refresh-token rows on a timer. Expiry
// is enforced at query time regardless; this only reclaims storage.
func (a *App) sweepExpiredTokens(ctx context.Context) {
	if a.cfg.TokenSweepInterval <= 0 || a.sessions == nil {
		return
	}

	t := time.NewTicker(a.cfg.TokenSweepInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.sessions.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				if ctx.Err() == nil {
					a.log.Error("token.sweep.fail", "err", err)
				}
				continue
			}
			if n > 0 {
				a.log.Info("token.sweep", "deleted", n)
			}
		}
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and the in-memory
// dev stores. The app owns the pool lifecycle.
func newStore(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, identity.Store, session.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, false, identity.NewMemoryStore(), session.NewMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, nil, err
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}

	log.Info("db.enabled.postgres_store")
	return dbStore{pool: pool}, pool, true, users, session.NewPostgresStore(pool), nil
}

// seedDevAdmin creates an admin principal in memory mode so a fresh dev
// server is immediately usable. Both env values must be set.
func seedDevAdmin(ctx context.Context, cfg Config, users identity.Store, passwords password.Config, log Logger) error {
	if cfg.DevAdminEmail == "" || cfg.DevAdminPassword == "" {
		return nil
	}

	hash, err := passwords.Hash(cfg.DevAdminPassword)
	if err != nil {
		return err
	}

	u, err := users.CreateUser(ctx, identity.CreateUserInput{
		Email:        cfg.DevAdminEmail,
		IsAdmin:      true,
		PasswordHash: hash,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	log.Info("dev.admin.seeded", "email", u.Email, "user_id", u.ID)
	return nil
}
