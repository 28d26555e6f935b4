package redisstore

import (
	"context"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/tests"
)

// Run with PORTAL_TEST_REDIS_ADDR=localhost:6379
func newStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("PORTAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PORTAL_TEST_REDIS_ADDR not set")
	}
	client, err := Open(context.Background(), addr, os.Getenv("PORTAL_TEST_REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := New(client, "masomo:test:"+t.Name()+":")
	require.NoError(t, store.Clear(context.Background()))
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrNotFound))

	creds := session.Credentials{Token: "t1", User: testutil.User(user.RoleAdmin)}
	require.NoError(t, store.Save(ctx, creds))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", loaded.Token)
	assert.Equal(t, creds.User.Email, loaded.User.Email)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrNotFound))
}

func TestStore_Incomplete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.client.Set(ctx, store.key(session.KeyToken), "t1", 0).Err())
	_, err := store.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrIncomplete))
	require.NoError(t, store.Clear(ctx))
}

func TestStore_Keys(t *testing.T) {
	store := New(nil, "masomo:portal:")
	assert.Equal(t, []string{"masomo:portal:token", "masomo:portal:user"}, store.keys())
}
