package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"tecbook-auth/internal/auth/credentials"
	"tecbook-auth/internal/auth/federation"
	"tecbook-auth/internal/auth/handler"
	"tecbook-auth/internal/auth/provider"
	"tecbook-auth/internal/auth/provider/google"
	"tecbook-auth/internal/auth/provider/keycloak"
	"tecbook-auth/internal/auth/resolver"
	"tecbook-auth/internal/config"
	"tecbook-auth/internal/logger"
	"tecbook-auth/internal/metrics"
	"tecbook-auth/internal/middleware"
	"tecbook-auth/internal/revocation"
	"tecbook-auth/internal/token"
)

func setupHTTP(ctx context.Context, cfg config.Config, infra *Infra) (*gin.Engine, *revocation.Manager, error) {

	// ----------------------------
	// Token core
	// ----------------------------

	codec, err := token.NewCodec([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("token codec: %w", err)
	}
	if err := codec.SelfCheck("selfcheck" + cfg.InstitutionalDomain); err != nil {
		return nil, nil, fmt.Errorf("token self-check: %w", err)
	}
	logger.Info("token codec ready", map[string]any{"ttl_ms": cfg.TokenTTL.Milliseconds()})

	tokens := revocation.NewManager(codec)
	m := metrics.New(tokens.Stats)

	// ----------------------------
	// Identity providers
	// ----------------------------

	providers, err := setupProviders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	registry := provider.NewRegistry(providers...)

	bridge := federation.NewBridge(federation.Config{
		InstitutionalDomain: cfg.InstitutionalDomain,
		SuccessURL:          cfg.FrontendURL,
		ProfileURL:          cfg.FrontendProfileURL,
		ErrorURL:            cfg.FrontendErrorURL,
	}, resolver.NewDirectoryResolver(infra.Directory, registry), codec)

	authHandler := handler.NewHandler(handler.Deps{
		Providers:     registry,
		Credentials:   credentials.NewService(infra.Directory),
		Directory:     infra.Directory,
		Codec:         codec,
		Tokens:        tokens,
		Bridge:        bridge,
		Metrics:       m,
		SecureCookies: cfg.Env == config.EnvProd,
	})

	gate := middleware.NewGate(
		middleware.NewRoutes(cfg.PublicPaths),
		tokens,
		infra.Directory,
		middleware.WithRejectHook(func(f *middleware.Failure) {
			m.AuthRejections.WithLabelValues(fmt.Sprint(f.Status)).Inc()
		}),
	)

	// ----------------------------
	// Router
	// ----------------------------

	if cfg.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.GinLogger(),
		middleware.GinMetrics(m),
		middleware.GinRequireAuth(gate),
	)

	authHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	return router, tokens, nil
}

// setupProviders builds every provider whose configuration is present.
func setupProviders(ctx context.Context, cfg config.Config) ([]provider.OAuthProvider, error) {
	var list []provider.OAuthProvider

	if cfg.GoogleClientID != "" {
		p, err := google.New(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.KeycloakIssuer != "" {
		p, err := keycloak.New(
			ctx,
			cfg.KeycloakIssuer,
			cfg.KeycloakClientID,
			cfg.KeycloakRedirectURL,
			cfg.KeycloakPublicBaseURL,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if len(list) == 0 {
		logger.Warn("no identity provider configured, federated login disabled", nil)
	}
	return list, nil
}
