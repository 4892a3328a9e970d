package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations_Repository(t *testing.T) {
	files, err := ListMigrations(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "000001", files[0].Version)
	assert.Equal(t, "create_users", files[0].Name)
	assert.Equal(t, "create_pricing_requests", files[1].Name)
}

func TestListMigrations(t *testing.T) {
	t.Run("missing down file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_init.up.sql"), []byte("SELECT 1;"), 0o600))

		_, err := ListMigrations(dir)
		assert.ErrorContains(t, err, "000001_init")
	})

	t.Run("ignores other files and sorts", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"000002_b.up.sql", "000002_b.down.sql",
			"000001_a.up.sql", "000001_a.down.sql",
			"README.md",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
		}

		files, err := ListMigrations(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "a", files[0].Name)
		assert.Equal(t, "b", files[1].Name)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
}
