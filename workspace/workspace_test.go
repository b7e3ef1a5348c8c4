package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCreate_CopiesRepositoryContent(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, "src", "main.rs"), "fn main() {}")
	writeFile(t, filepath.Join(repo, "Cargo.toml"), "[package]\nname=\"x\"\n")

	ws, err := Create(repo, t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	data, err := os.ReadFile(filepath.Join(ws.Root, "src", "main.rs"))
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}", string(data))

	assert.NotEqual(t, repo, ws.Root)
}

func TestCreate_MutatingWorkspaceDoesNotAffectOriginal(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, "src", "main.rs"), "original")

	ws, err := Create(repo, t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	wsFile := filepath.Join(ws.Root, "src", "main.rs")
	require.NoError(t, os.WriteFile(wsFile, []byte("mutated"), 0o644))

	original, err := os.ReadFile(filepath.Join(repo, "src", "main.rs"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(original))
}

func TestClose_RemovesWorkspaceDirectory(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, "a.txt"), "a")

	ws, err := Create(repo, t.TempDir())
	require.NoError(t, err)

	root := ws.Root
	require.NoError(t, ws.Close())

	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

func TestClose_IsIdempotent(t *testing.T) {
	repo := t.TempDir()
	ws, err := Create(repo, t.TempDir())
	require.NoError(t, err)

	require.NoError(t, ws.Close())
	require.NoError(t, ws.Close())
}

func TestClose_NilWorkspaceIsNoop(t *testing.T) {
	var ws *Workspace
	assert.NoError(t, ws.Close())
}

func TestToWorkspacePath_AndBack(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, filepath.Join(repo, "src", "main.rs"), "fn main() {}")

	ws, err := Create(repo, t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	original := filepath.Join(repo, "src", "main.rs")
	wsPath, err := ws.ToWorkspacePath(original)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root, "src", "main.rs"), wsPath)

	backToOriginal, err := ws.ToOriginalPath(wsPath)
	require.NoError(t, err)
	assert.Equal(t, original, backToOriginal)
}

func TestToWorkspacePath_RejectsPathOutsideRoot(t *testing.T) {
	repo := t.TempDir()
	ws, err := Create(repo, t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	_, err = ws.ToWorkspacePath(filepath.Join(filepath.Dir(repo), "elsewhere", "file.rs"))
	assert.Error(t, err)
}

func TestTranslate_IsPureFunctionOfRoots(t *testing.T) {
	path, err := translate("/repo", "/tmp/ws123", "/repo/src/main.rs")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ws123/src/main.rs", path)
}
