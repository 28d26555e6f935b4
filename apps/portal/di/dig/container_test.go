package dig_container

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoportal "github.com/trezcool/masomo-portal/apps/portal/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/storage/keystore"
)

func testConfig(t *testing.T, driver string) NewConfigFunc {
	return func() *core.Config {
		return &core.Config{
			TestMode: true,
			API:      core.APIConfig{BaseURL: "http://localhost:1/api"},
			Storage:  core.StorageConfig{Driver: driver, Path: filepath.Join(t.TempDir(), "session.json")},
		}
	}
}

func TestNew(t *testing.T) {
	for _, driver := range []string{core.StorageMemory, core.StorageFile} {
		t.Run(driver, func(t *testing.T) {
			c := New(testConfig(t, driver))

			err := c.Invoke(func(store *session.Store, ks *keystore.Keystore, server *echoportal.Server) {
				assert.Equal(t, driver, ks.Driver)
				assert.Equal(t, session.StatusInitializing, store.Snapshot().Status)
				assert.NotNil(t, server)
			})
			require.NoError(t, err)
		})
	}
}

func TestNew_SingleStore(t *testing.T) {
	c := New(testConfig(t, core.StorageMemory))

	var first, second *session.Store
	require.NoError(t, c.Invoke(func(s *session.Store) { first = s }))
	require.NoError(t, c.Invoke(func(s *session.Store) { second = s }))
	assert.Same(t, first, second)
}

func TestNew_UnknownDriver(t *testing.T) {
	c := New(testConfig(t, "floppy"))

	err := c.Invoke(func(*session.Store) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage driver "floppy"`)
}
