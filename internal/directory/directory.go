// Package directory is the account store consulted by the auth core:
// lookup by email, creation and profile updates. Implementations must be
// safe for concurrent use; timeouts and retries are their own concern.
package directory

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("account not found")
	ErrInactive      = errors.New("account inactive")
	ErrAlreadyExists = errors.New("account already exists")
)

type Directory interface {
	// LoadByEmail returns ErrNotFound when no account matches.
	LoadByEmail(ctx context.Context, email string) (Account, error)

	// Create stores a new account, assigning ID and timestamps when unset.
	// Returns ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, acc Account) (Account, error)

	// Update replaces the stored account with the same email. An empty
	// PasswordHash keeps the stored one.
	// Returns ErrNotFound if it does not exist.
	Update(ctx context.Context, acc Account) (Account, error)
}

// Unwrapper is implemented by layers stacked over another Directory.
type Unwrapper interface {
	Unwrap() Directory
}

// Authoritative peels caching layers off d. Caches never hold the password
// hash, so credential checks must read through this.
func Authoritative(d Directory) Directory {
	for {
		u, ok := d.(Unwrapper)
		if !ok {
			return d
		}
		d = u.Unwrap()
	}
}
