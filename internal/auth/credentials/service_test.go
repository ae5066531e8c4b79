package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tecbook-auth/internal/directory"
)

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("long-enough")
	require.NoError(t, err)
	assert.NotEqual(t, "long-enough", hash)
	assert.NoError(t, VerifyPassword(hash, "long-enough"))
	assert.Error(t, VerifyPassword(hash, "wrong-one"))
}

func TestRandomPasswordHash(t *testing.T) {
	a, err := RandomPasswordHash()
	require.NoError(t, err)
	b, err := RandomPasswordHash()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRegister(t *testing.T) {
	s := NewService(directory.NewMemory())
	ctx := context.Background()

	acc, err := s.Register(ctx, Registration{
		Email:     " Alice@Tecsup.edu.pe ",
		Password:  "correct-horse",
		FirstName: " Alice ",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@tecsup.edu.pe", acc.Email)
	assert.Equal(t, "alice", acc.Code)
	assert.Equal(t, "Alice", acc.FirstName)
	assert.Equal(t, directory.RoleStudent, acc.Role)
	assert.Equal(t, directory.DefaultDepartmentID, acc.DepartmentID)
	assert.True(t, acc.Active)
	assert.NoError(t, VerifyPassword(acc.PasswordHash, "correct-horse"))

	_, err = s.Register(ctx, Registration{Email: "alice@tecsup.edu.pe", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = s.Register(ctx, Registration{Email: "not-an-email", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = s.Register(ctx, Registration{Email: "bob@tecsup.edu.pe", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestAuthenticate(t *testing.T) {
	dir := directory.NewMemory()
	s := NewService(dir)
	ctx := context.Background()

	_, err := s.Register(ctx, Registration{Email: "alice@tecsup.edu.pe", Password: "correct-horse"})
	require.NoError(t, err)

	acc, err := s.Authenticate(ctx, "ALICE@tecsup.edu.pe", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@tecsup.edu.pe", acc.Email)

	_, err = s.Authenticate(ctx, "alice@tecsup.edu.pe", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "nobody@tecsup.edu.pe", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// federated accounts without a usable password
	_, err = dir.Create(ctx, directory.Account{Email: "fed@tecsup.edu.pe", Active: true})
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, "fed@tecsup.edu.pe", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	acc.Active = false
	_, err = dir.Update(ctx, acc)
	require.NoError(t, err)
	_, err = s.Authenticate(ctx, "alice@tecsup.edu.pe", "correct-horse")
	assert.ErrorIs(t, err, directory.ErrInactive)

	// wrong password on an inactive account stays a credentials error
	_, err = s.Authenticate(ctx, "alice@tecsup.edu.pe", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_AlwaysComparesHash(t *testing.T) {
	dir := directory.NewMemory()
	s := NewService(dir)
	ctx := context.Background()

	var compared []string
	s.verify = func(hash, password string) error {
		compared = append(compared, hash)
		return VerifyPassword(hash, password)
	}

	_, err := dir.Create(ctx, directory.Account{Email: "fed@tecsup.edu.pe", Active: true})
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "nobody@tecsup.edu.pe", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "fed@tecsup.edu.pe", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, compared, 2)
	for _, h := range compared {
		assert.NotEmpty(t, h)
	}
}

func TestAuthenticate_ReadsPastCache(t *testing.T) {
	ctx := context.Background()
	backing := directory.NewMemory()
	cached := &hashlessDirectory{Directory: backing}
	s := NewService(cached)

	_, err := NewService(backing).Register(ctx, Registration{Email: "alice@tecsup.edu.pe", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "alice@tecsup.edu.pe", "correct-horse")
	assert.NoError(t, err)
}

// hashlessDirectory mimics a cache layer that strips password hashes.
type hashlessDirectory struct {
	directory.Directory
}

func (h *hashlessDirectory) LoadByEmail(ctx context.Context, email string) (directory.Account, error) {
	acc, err := h.Directory.LoadByEmail(ctx, email)
	acc.PasswordHash = ""
	return acc, err
}

func (h *hashlessDirectory) Unwrap() directory.Directory {
	return h.Directory
}
