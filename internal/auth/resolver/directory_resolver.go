package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tecbook-auth/internal/auth"
	"tecbook-auth/internal/auth/credentials"
	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/logger"
)

// DirectoryResolver upserts federated identities into the account directory.
type DirectoryResolver struct {
	dir     directory.Directory
	avatars AvatarOwner

	// newPasswordHash is swapped in tests to skip bcrypt.
	newPasswordHash func() (string, error)
}

func NewDirectoryResolver(dir directory.Directory, avatars AvatarOwner) *DirectoryResolver {
	return &DirectoryResolver{
		dir:             dir,
		avatars:         avatars,
		newPasswordHash: credentials.RandomPasswordHash,
	}
}

func (r *DirectoryResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (directory.Account, bool, error) {

	if identity == nil {
		return directory.Account{}, false, errors.New("identity is nil")
	}

	email := directory.NormalizeEmail(identity.Email)

	// 1. Existing account: refresh mutable fields
	acc, err := r.dir.LoadByEmail(ctx, email)
	if err == nil {
		updated, err := r.refresh(ctx, acc, identity)
		return updated, false, err
	}
	if !errors.Is(err, directory.ErrNotFound) {
		return directory.Account{}, false, fmt.Errorf("load account: %w", err)
	}

	// 2. First federated login for this email
	created, err := r.create(ctx, email, identity)
	if errors.Is(err, directory.ErrAlreadyExists) {
		// lost a race with a concurrent first login
		acc, err := r.dir.LoadByEmail(ctx, email)
		if err != nil {
			return directory.Account{}, false, fmt.Errorf("load account: %w", err)
		}
		return acc, false, nil
	}
	if err != nil {
		return directory.Account{}, false, err
	}
	return created, true, nil
}

func (r *DirectoryResolver) create(
	ctx context.Context,
	email string,
	identity *auth.Identity,
) (directory.Account, error) {

	hash, err := r.newPasswordHash()
	if err != nil {
		return directory.Account{}, fmt.Errorf("password hash: %w", err)
	}

	acc, err := r.dir.Create(ctx, directory.Account{
		Email:        email,
		PasswordHash: hash,
		Code:         directory.CodeFromEmail(email),
		FirstName:    strings.TrimSpace(identity.GivenName),
		LastName:     strings.TrimSpace(identity.FamilyName),
		Role:         directory.RoleStudent,
		Active:       true,
		DepartmentID: directory.DefaultDepartmentID,
		AvatarURL:    identity.AvatarURL,
	})
	if err != nil {
		return directory.Account{}, err
	}

	logger.Info("federated account created", map[string]any{
		"email":    acc.Email,
		"provider": identity.Provider,
	})
	return acc, nil
}

// refresh copies display names from the assertion and replaces the avatar
// only when none is stored or the stored one came from the same provider.
func (r *DirectoryResolver) refresh(
	ctx context.Context,
	acc directory.Account,
	identity *auth.Identity,
) (directory.Account, error) {

	changed := false

	if v := strings.TrimSpace(identity.GivenName); v != "" && v != acc.FirstName {
		acc.FirstName = v
		changed = true
	}
	if v := strings.TrimSpace(identity.FamilyName); v != "" && v != acc.LastName {
		acc.LastName = v
		changed = true
	}
	if identity.AvatarURL != "" && identity.AvatarURL != acc.AvatarURL {
		if acc.AvatarURL == "" || r.avatars.OwnsAvatar(identity.Provider, acc.AvatarURL) {
			acc.AvatarURL = identity.AvatarURL
			changed = true
		}
	}

	if !changed {
		return acc, nil
	}

	updated, err := r.dir.Update(ctx, acc)
	if err != nil {
		return directory.Account{}, fmt.Errorf("update account: %w", err)
	}
	return updated, nil
}
