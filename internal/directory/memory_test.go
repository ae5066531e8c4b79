package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateLoad(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory()

	created, err := dir.Create(ctx, Account{Email: "Alice@Tecsup.edu.pe", Role: RoleStudent, Active: true})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "alice@tecsup.edu.pe", created.Email)
	assert.False(t, created.RegisteredAt.IsZero())

	got, err := dir.LoadByEmail(ctx, " ALICE@tecsup.edu.pe ")
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestMemory_NotFound(t *testing.T) {
	_, err := NewMemory().LoadByEmail(context.Background(), "ghost@tecsup.edu.pe")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewMemory().Update(context.Background(), Account{Email: "ghost@tecsup.edu.pe"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_Duplicate(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory()
	_, err := dir.Create(ctx, Account{Email: "alice@tecsup.edu.pe"})
	require.NoError(t, err)
	_, err = dir.Create(ctx, Account{Email: "ALICE@tecsup.edu.pe"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemory_UpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory()
	created, err := dir.Create(ctx, Account{Email: "alice@tecsup.edu.pe", FirstName: "A"})
	require.NoError(t, err)

	upd := created
	upd.ID = uuid.New()
	upd.FirstName = "Alice"
	got, err := dir.Update(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.RegisteredAt, got.RegisteredAt)
	assert.Equal(t, "Alice", got.FirstName)
}

func TestAccountHelpers(t *testing.T) {
	career := int64(4)
	acc := Account{Email: "alice.q@tecsup.edu.pe", Role: RoleStudent}

	assert.Equal(t, []string{"ROLE_ALUMNO"}, acc.Authorities())
	assert.True(t, acc.NeedsProfileCompletion())

	acc.CareerID = &career
	assert.False(t, acc.NeedsProfileCompletion())

	acc.Role = RoleTeacher
	acc.CareerID = nil
	assert.False(t, acc.NeedsProfileCompletion())
	assert.Equal(t, []string{"ROLE_PROFESOR"}, acc.Authorities())

	assert.Equal(t, "alice.q", CodeFromEmail(" Alice.Q@tecsup.edu.pe"))
}
