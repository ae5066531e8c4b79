package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tecbook-auth/internal/auth/credentials"
	"tecbook-auth/internal/auth/federation"
	"tecbook-auth/internal/auth/provider"
	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/logger"
	"tecbook-auth/internal/metrics"
	"tecbook-auth/internal/revocation"
	"tecbook-auth/internal/token"
)

// TokenCodec signs and verifies tokens. *token.Codec satisfies it.
type TokenCodec interface {
	Sign(subject string, now time.Time) (string, error)
	Verify(raw string) (token.Claims, error)
	Now() time.Time
}

type Deps struct {
	Providers   *provider.Registry
	Credentials *credentials.Service
	Directory   directory.Directory
	Codec       TokenCodec
	Tokens      *revocation.Manager
	Bridge      *federation.Bridge
	Metrics     *metrics.Metrics

	// SecureCookies marks OAuth flow cookies Secure; off for plain-http dev.
	SecureCookies bool
}

type Handler struct {
	providers     *provider.Registry
	credentials   *credentials.Service
	dir           directory.Directory
	codec         TokenCodec
	tokens        *revocation.Manager
	bridge        *federation.Bridge
	metrics       *metrics.Metrics
	secureCookies bool
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		providers:     d.Providers,
		credentials:   d.Credentials,
		dir:           d.Directory,
		codec:         d.Codec,
		tokens:        d.Tokens,
		bridge:        d.Bridge,
		metrics:       d.Metrics,
		secureCookies: d.SecureCookies,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)

	r.GET("/oauth2/authorize/:provider", h.authorize)
	r.GET("/oauth2/callback/:provider", h.callback)

	api := r.Group("/api")
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/token/status", h.TokenStatus)
	api.GET("/auth/google-login", h.googleLogin)
	api.GET("/auth/user", h.CurrentUser)
	api.PUT("/auth/user", h.UpdateUser)
	api.POST("/core/usuarios/register", h.Register)
}

func (h *Handler) googleLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, "/oauth2/authorize/google")
}

func (h *Handler) authorize(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		writeError(c, http.StatusNotFound, "Proveedor desconocido", "Proveedor OAuth2 no configurado: "+providerName)
		return
	}

	state, err := h.generateState(c)
	if err != nil {
		logger.Error("oauth state generation failed", map[string]any{"error": err.Error()})
		c.Redirect(http.StatusFound, h.bridge.Fail(err))
		return
	}
	_, codeChallenge, err := h.generatePKCE(c)
	if err != nil {
		logger.Error("pkce generation failed", map[string]any{"error": err.Error()})
		c.Redirect(http.StatusFound, h.bridge.Fail(err))
		return
	}

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
}

// callback always answers with a redirect: to the frontend with a token on
// success, to the error page otherwise.
func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")
	// flow cookies are single use; the request still carries them
	h.clearFlowCookies(c)

	p, err := h.providers.Get(providerName)
	if err != nil {
		logger.Warn("oauth callback for unknown provider", map[string]any{"provider": providerName})
		c.Redirect(http.StatusFound, h.bridge.Fail(federation.ErrUpstreamIdentity))
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oidc callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, h.bridge.FailProvider(errParam))
		return
	}

	if !validateState(c) {
		logger.Warn("oauth callback state mismatch", map[string]any{"provider": providerName})
		c.Redirect(http.StatusFound, h.bridge.FailProvider("invalid_request"))
		return
	}

	code := c.Query("code")
	codeVerifier := getPKCEVerifier(c)
	if code == "" || codeVerifier == "" {
		logger.Warn("oauth callback missing code or verifier", map[string]any{"provider": providerName})
		c.Redirect(http.StatusFound, h.bridge.FailProvider("invalid_request"))
		return
	}

	identity, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		logger.Error("oauth code exchange failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.Redirect(http.StatusFound, h.bridge.FailProvider("server_error"))
		return
	}

	target := h.bridge.Complete(c.Request.Context(), identity)
	if h.metrics != nil && hasToken(target) {
		h.metrics.TokensIssued.WithLabelValues("federated").Inc()
	}
	c.Redirect(http.StatusFound, target)
}
