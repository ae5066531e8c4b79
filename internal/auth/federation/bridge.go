// Package federation turns a verified external identity assertion into a
// local account and a locally issued token, and decides where the browser
// goes next. Every outcome is a redirect URL; nothing here returns an error
// to the OAuth callback.
package federation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tecbook-auth/internal/auth"
	"tecbook-auth/internal/auth/resolver"
	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/logger"
)

var (
	ErrDomainNotAllowed = errors.New("email domain not allowed")
	ErrEmailUnverified  = errors.New("email not verified by provider")
	ErrUpstreamIdentity = errors.New("identity provider error")
)

// Signer issues tokens for a subject. *token.Codec satisfies it.
type Signer interface {
	Sign(subject string, now time.Time) (string, error)
	Now() time.Time
}

type Config struct {
	// InstitutionalDomain is the required email suffix, e.g. "@tecsup.edu.pe".
	InstitutionalDomain string

	// SuccessURL receives ?token=... for accounts with a complete profile.
	SuccessURL string

	// ProfileURL receives ?token=...&new=... for accounts that still have to
	// complete their profile.
	ProfileURL string

	// ErrorURL receives ?error=<reason>.
	ErrorURL string
}

type Bridge struct {
	cfg      Config
	resolver resolver.Resolver
	signer   Signer
}

func NewBridge(cfg Config, r resolver.Resolver, s Signer) *Bridge {
	cfg.InstitutionalDomain = strings.ToLower(cfg.InstitutionalDomain)
	return &Bridge{cfg: cfg, resolver: r, signer: s}
}

// Complete handles a successful assertion and returns the redirect target.
func (b *Bridge) Complete(ctx context.Context, identity *auth.Identity) (target string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("federated login panicked", map[string]any{"panic": fmt.Sprint(rec)})
			target = b.errorURL("Error general de autenticación. Por favor, intenta nuevamente.")
		}
	}()

	if identity == nil {
		return b.Fail(ErrUpstreamIdentity)
	}

	email := directory.NormalizeEmail(identity.Email)
	if !b.AllowedEmail(email) {
		logger.Warn("federated login rejected: domain", map[string]any{
			"email":    email,
			"provider": identity.Provider,
		})
		return b.Fail(ErrDomainNotAllowed)
	}

	// The provider's email claim is only a login name once the provider
	// vouches for it.
	if !identity.EmailVerified {
		logger.Warn("federated login rejected: unverified email", map[string]any{
			"email":    email,
			"provider": identity.Provider,
		})
		return b.Fail(ErrEmailUnverified)
	}

	acc, created, err := b.resolver.Resolve(ctx, identity)
	if err != nil {
		logger.Error("federated login: account upsert failed", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return b.errorURL("Error al procesar usuario. Por favor, intenta nuevamente.")
	}
	if !acc.Active {
		logger.Warn("federated login rejected: inactive", map[string]any{"email": email})
		return b.Fail(directory.ErrInactive)
	}

	tok, err := b.signer.Sign(acc.Email, b.signer.Now())
	if err != nil {
		logger.Error("federated login: token signing failed", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return b.errorURL("Error al generar el token de acceso.")
	}

	logger.Info("federated login succeeded", map[string]any{
		"email":    acc.Email,
		"provider": identity.Provider,
		"new":      created,
	})

	if acc.NeedsProfileCompletion() {
		return withQuery(b.cfg.ProfileURL, url.Values{
			"token": {tok},
			"new":   {strconv.FormatBool(created)},
		})
	}
	return withQuery(b.cfg.SuccessURL, url.Values{"token": {tok}})
}

// AllowedEmail reports whether email belongs to the institutional domain.
func (b *Bridge) AllowedEmail(email string) bool {
	email = directory.NormalizeEmail(email)
	return b.cfg.InstitutionalDomain != "" &&
		len(email) > len(b.cfg.InstitutionalDomain) &&
		strings.HasSuffix(email, b.cfg.InstitutionalDomain)
}

// Fail returns the error redirect for err.
func (b *Bridge) Fail(err error) string {
	return b.errorURL(b.reason(err))
}

// FailProvider returns the error redirect for an error code sent back by
// the identity provider on its callback.
func (b *Bridge) FailProvider(code string) string {
	return b.errorURL(ProviderReason(code))
}

func (b *Bridge) reason(err error) string {
	switch {
	case errors.Is(err, ErrDomainNotAllowed):
		return "Solo se permiten correos con dominio " + b.cfg.InstitutionalDomain
	case errors.Is(err, ErrEmailUnverified):
		return "Tu correo no está verificado por el proveedor de identidad."
	case errors.Is(err, directory.ErrInactive):
		return "Tu cuenta está desactivada. Contacta al administrador."
	default:
		return "Error de autenticación. Por favor, intenta nuevamente."
	}
}

// ProviderReason maps an OAuth error code to a readable message.
func ProviderReason(code string) string {
	switch code {
	case "access_denied":
		return "Acceso denegado. Debes autorizar el acceso a tu cuenta."
	case "invalid_request":
		return "Solicitud OAuth2 inválida. Por favor, intenta nuevamente."
	case "server_error":
		return "Error del proveedor de identidad. Por favor, intenta más tarde."
	case "temporarily_unavailable":
		return "Proveedor de identidad temporalmente no disponible. Intenta más tarde."
	default:
		return "Error de autenticación. Por favor, intenta nuevamente."
	}
}

func (b *Bridge) errorURL(reason string) string {
	return withQuery(b.cfg.ErrorURL, url.Values{"error": {reason}})
}

// withQuery appends params to base, keeping any query base already has.
func withQuery(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + params.Encode()
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
