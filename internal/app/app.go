// Package app wires configuration, storage, services and the HTTP router
// into a runnable process.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-system/docs"
	"github.com/99minutos/account-system/internal/api"
	"github.com/99minutos/account-system/internal/api/handler"
	"github.com/99minutos/account-system/internal/core/security"
	"github.com/99minutos/account-system/internal/core/service"
	"github.com/99minutos/account-system/internal/infrastructure/audit"
	"github.com/99minutos/account-system/internal/pkg/config"
)

type App struct {
	Echo     *echo.Echo
	Accounts *service.AccountService
	Auth     *service.AuthService

	log        zerolog.Logger
	store      *store
	dispatcher *audit.Dispatcher
	stop       context.CancelFunc
}

// Options tweaks Build. The zero value serves HTTP metrics through the
// default Prometheus registry.
type Options struct {
	// SkipHTTPMetrics disables the echoprometheus middleware. CLI commands
	// that never serve HTTP set it.
	SkipHTTPMetrics bool
}

// Build opens the configured store and assembles every component. Callers
// must Close the returned App.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("store", st.name).Msg("directory ready")

	codec, err := security.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		_ = st.close(ctx)
		return nil, fmt.Errorf("token codec: %w", err)
	}
	hasher := security.NewPasswordHasher(cfg.Auth.BcryptCost)

	workerCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	dispatcher := audit.NewDispatcher(cfg.AuditWorkers, st.sink, log)
	dispatcher.Start(workerCtx)

	chain := service.NewTrustChain(codec, st.dir, log)
	accounts := service.NewAccountService(st.dir, hasher, chain, log, service.WithAuditRecorder(dispatcher))
	auth := service.NewAuthService(st.dir, hasher, codec, log, service.WithAuditRecorder(dispatcher))

	docs.SwaggerInfo.BasePath = cfg.APIPrefix

	deps := api.Deps{
		Auth:      auth,
		Accounts:  accounts,
		Pingers:   map[string]handler.Pinger{st.name: st.dir},
		Log:       log,
		APIPrefix: cfg.APIPrefix,
	}
	if !opts.SkipHTTPMetrics {
		deps.Registerer = prometheus.DefaultRegisterer
		deps.Gatherer = prometheus.DefaultGatherer
	}

	return &App{
		Echo:       api.NewRouter(deps),
		Accounts:   accounts,
		Auth:       auth,
		log:        log,
		store:      st,
		dispatcher: dispatcher,
		stop:       stop,
	}, nil
}

// Close drains pending audit events, then releases the store.
func (a *App) Close(ctx context.Context) error {
	drainErr := a.dispatcher.Close(ctx)
	if drainErr != nil {
		a.log.Warn().Err(drainErr).Msg("audit drain incomplete")
	}
	a.stop()

	if err := a.store.close(ctx); err != nil {
		return errors.Join(drainErr, fmt.Errorf("close %s: %w", a.store.name, err))
	}
	return drainErr
}
