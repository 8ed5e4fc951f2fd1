package auth

import (
	"context"
	"testing"

	"github.com/chemequip/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.Options{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("demo123")
	require.NoError(t, err)
	assert.NotEqual(t, "demo123", hash)

	assert.True(t, CheckPassword(hash, "demo123"))
	assert.False(t, CheckPassword(hash, "demo124"))
	assert.False(t, CheckPassword("not-a-hash", "demo123"))
}

func TestEnsureUser_CreatesThenUpdates(t *testing.T) {
	store := newUserStore(t)
	ctx := context.Background()

	created, err := EnsureUser(ctx, store, "demo", "demo123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureUser(ctx, store, "demo", "changed")
	require.NoError(t, err)
	assert.False(t, created)

	a := NewAuthenticator(store)
	u, err := a.Authenticate(ctx, "demo", "changed")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "demo", u.Username)
	assert.True(t, u.IsStaff)

	u, err = a.Authenticate(ctx, "demo", "demo123")
	require.NoError(t, err)
	assert.Nil(t, u, "old password must stop working")
}

func TestEnsureUser_RequiresCredentials(t *testing.T) {
	store := newUserStore(t)

	_, err := EnsureUser(context.Background(), store, "  ", "pw")
	assert.Error(t, err)

	_, err = EnsureUser(context.Background(), store, "demo", "")
	assert.Error(t, err)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	a := NewAuthenticator(newUserStore(t))

	u, err := a.Authenticate(context.Background(), "ghost", "secret")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = a.Authenticate(context.Background(), "", "")
	require.NoError(t, err)
	assert.Nil(t, u)
}
