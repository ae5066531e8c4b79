package provider

import (
	"context"

	"tecbook-auth/internal/auth"
)

// OAuthProvider defines the contract every external identity provider
// must implement. Implementations return identity facts only and must not
// create accounts or issue tokens.
type OAuthProvider interface {
	// Name returns the provider identifier used in routes (e.g. "google").
	Name() string

	// AuthCodeURL returns the authorization URL.
	// State and PKCE parameters are provided by the caller.
	AuthCodeURL(state string, codeChallenge string) string

	// ExchangeCode exchanges the authorization code and returns the
	// verified assertion.
	ExchangeCode(
		ctx context.Context,
		code string,
		codeVerifier string,
	) (*auth.Identity, error)

	// OwnsAvatar reports whether url points at an avatar this provider
	// hosts, so a later login may refresh it.
	OwnsAvatar(url string) bool
}
