package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tecbook-auth/internal/config"
	"tecbook-auth/internal/logger"
	"tecbook-auth/internal/revocation"
)

type App struct {
	httpServer *http.Server
	infra      *Infra
	tokens     *revocation.Manager

	stopReaper context.CancelFunc
	reaperDone chan struct{}
}

// New wires the whole service. A signing key that fails the startup
// self-check is returned as an error here, before anything listens.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}

	router, tokens, err := setupHTTP(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	a := &App{
		httpServer: server,
		infra:      infra,
		tokens:     tokens,
		stopReaper: stopReaper,
		reaperDone: make(chan struct{}),
	}

	go func() {
		defer close(a.reaperDone)
		tokens.Run(reaperCtx, cfg.ReaperInterval)
	}()

	return a, nil
}

// Run serves until Shutdown.
func (a *App) Run() error {
	err := a.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)

	a.stopReaper()
	<-a.reaperDone

	stats := a.tokens.Stats()
	logger.Info("revocation state discarded", map[string]any{
		"blacklisted":    stats.Blacklisted,
		"expired_cached": stats.ExpiredCached,
	})

	return errors.Join(err, a.infra.Close())
}
