package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/tests"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "masomo", "session.json"))
	require.NoError(t, err)
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrNotFound))

	creds := session.Credentials{Token: "t1", User: testutil.User(user.RoleTeacher)}
	require.NoError(t, store.Save(ctx, creds))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, creds.Token, loaded.Token)
	assert.Equal(t, creds.User.ID, loaded.User.ID)
	assert.True(t, creds.User.CreatedAt.Equal(loaded.User.CreatedAt.Time))

	creds.Token = "t2"
	require.NoError(t, store.Save(ctx, creds))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t2", loaded.Token)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing twice")
	_, err = store.Load(ctx)
	assert.True(t, errors.Is(err, session.ErrNotFound))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files left behind")
}

func TestStore_Incomplete(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "token only", content: `{"token":"t1"}`},
		{name: "user only", content: `{"user":"{\"id\":\"u1\"}"}`},
		{name: "garbage", content: `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0o600))

			_, err := store.Load(context.Background())
			assert.True(t, errors.Is(err, session.ErrIncomplete), "got %v", err)
		})
	}
}
