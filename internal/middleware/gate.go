package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/logger"
	"tecbook-auth/internal/revocation"
	"tecbook-auth/internal/token"
)

const bearerPrefix = "Bearer "

// TokenChecker validates a raw token against signature, expiry and
// revocation. *revocation.Manager satisfies it.
type TokenChecker interface {
	Check(raw string) (token.Claims, error)
}

// Principal is the verified identity attached to a protected request.
type Principal struct {
	Account     directory.Account
	Authorities []string
	Claims      token.Claims
}

// Failure is a rejected authentication attempt.
type Failure struct {
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return fmt.Sprintf("%s: %v", f.Message, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// unexported, collision-proof context key
type principalContextKeyType struct{}

var principalKey = principalContextKeyType{}

// PrincipalFromContext extracts the authenticated principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Gate decides, per request, whether it may proceed.
type Gate struct {
	routes Routes
	tokens TokenChecker
	dir    directory.Directory
	clock  func() time.Time

	onReject func(*Failure)
}

type GateOption func(*Gate)

// WithRejectHook registers fn to observe every rejection.
func WithRejectHook(fn func(*Failure)) GateOption {
	return func(g *Gate) {
		g.onReject = fn
	}
}

// WithGateClock overrides the clock used for response timestamps.
func WithGateClock(clock func() time.Time) GateOption {
	return func(g *Gate) {
		g.clock = clock
	}
}

func NewGate(routes Routes, tokens TokenChecker, dir directory.Directory, opts ...GateOption) *Gate {
	g := &Gate{
		routes: routes,
		tokens: tokens,
		dir:    dir,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsProtected reports whether path requires authentication.
func (g *Gate) IsProtected(path string) bool {
	return g.routes.IsProtected(path)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	return raw, raw != ""
}

// Authenticate runs token extraction, validation and account resolution.
// Any failure, including a panic in a collaborator, is returned as a
// Failure; there is no path that yields a zero Principal with a nil Failure.
func (g *Gate) Authenticate(r *http.Request) (p Principal, fail *Failure) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("authentication panicked", map[string]any{
				"path":  r.URL.Path,
				"panic": fmt.Sprint(rec),
			})
			p, fail = Principal{}, &Failure{
				Status:  http.StatusUnauthorized,
				Message: "Error al procesar autenticación",
			}
		}
	}()

	raw, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Principal{}, &Failure{
			Status:  http.StatusUnauthorized,
			Message: "Token JWT requerido",
		}
	}

	claims, err := g.tokens.Check(raw)
	if err != nil {
		return Principal{}, &Failure{
			Status:  http.StatusUnauthorized,
			Message: tokenMessage(err),
			Err:     err,
		}
	}

	acc, err := g.dir.LoadByEmail(r.Context(), claims.Subject)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return Principal{}, &Failure{
			Status:  http.StatusUnauthorized,
			Message: "Usuario no encontrado",
			Err:     err,
		}
	case err != nil:
		return Principal{}, &Failure{
			Status:  http.StatusUnauthorized,
			Message: "Error al procesar autenticación",
			Err:     err,
		}
	}

	if !acc.Active {
		return Principal{}, &Failure{
			Status:  http.StatusForbidden,
			Message: "Cuenta desactivada",
			Err:     directory.ErrInactive,
		}
	}

	return Principal{
		Account:     acc,
		Authorities: acc.Authorities(),
		Claims:      claims,
	}, nil
}

func tokenMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "Token JWT expirado"
	case errors.Is(err, revocation.ErrBlacklisted):
		return "Token JWT revocado"
	default:
		return "Token JWT inválido"
	}
}

// RequireAuth lets public paths through untouched and authenticates
// everything else. Public paths never inspect the Authorization header.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.IsProtected(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		p, fail := g.Authenticate(r)
		if fail != nil {
			fields := map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": fail.Status,
				"reason": fail.Message,
			}
			if fail.Err != nil {
				fields["error"] = fail.Err.Error()
			}
			logger.Warn("request rejected", fields)
			if g.onReject != nil {
				g.onReject(fail)
			}
			WriteFailure(w, fail, g.clock())
			return
		}

		logger.Debug("request authenticated", map[string]any{
			"path":  r.URL.Path,
			"email": p.Account.Email,
		})
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
