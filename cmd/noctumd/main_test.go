package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreFromConfig_UsesConfiguredDataDir(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "noctumd.toml")
	require.NoError(t, writeTestConfig(t, configPath, dir))

	st, err := openStoreFromConfig(configPath)
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, filepath.Join(dir, "noctum.db"), st.Path())
}

func TestRepoAddListRemove_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "noctumd.toml")
	require.NoError(t, writeTestConfig(t, configPath, dir))

	st, err := openStoreFromConfig(configPath)
	require.NoError(t, err)
	defer st.Close()

	repoDir := t.TempDir()
	repo, err := st.AddRepository(repoDir, "example", true)
	require.NoError(t, err)

	repos, err := st.ListRepositories(false)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "example", repos[0].Name)

	require.NoError(t, st.DeleteRepository(repo.ID))
	repos, err = st.ListRepositories(false)
	require.NoError(t, err)
	assert.Empty(t, repos)
}

func writeTestConfig(t *testing.T, path, dataDir string) error {
	t.Helper()
	contents := "data_dir = \"" + dataDir + "\"\n"
	return os.WriteFile(path, []byte(contents), 0o644)
}
