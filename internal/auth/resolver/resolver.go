package resolver

import (
	"context"

	"tecbook-auth/internal/auth"
	"tecbook-auth/internal/directory"
)

// Resolver determines which local account an external identity belongs to,
// creating it on first sight. It is the only place where identity-to-account
// mapping logic lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		identity *auth.Identity,
	) (acc directory.Account, created bool, err error)
}

// AvatarOwner tells whether a stored avatar URL was sourced from a provider.
// *provider.Registry satisfies it.
type AvatarOwner interface {
	OwnsAvatar(provider, url string) bool
}
