package langadapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetAndList(t *testing.T) {
	names := List()
	assert.Contains(t, names, "system")
	assert.Contains(t, names, "web")

	a, err := Get("system")
	require.NoError(t, err)
	assert.Equal(t, "system", a.Name())

	_, err = Get("cobol")
	assert.Error(t, err)
}

func TestDetect_PrefersCorrectMarkerFile(t *testing.T) {
	rustRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rustRoot, "Cargo.toml"), []byte("[package]\nname=\"x\"\n"), 0o644))

	a, err := Detect(rustRoot)
	require.NoError(t, err)
	assert.Equal(t, "system", a.Name())

	webRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webRoot, "package.json"), []byte("{}"), 0o644))

	a, err = Detect(webRoot)
	require.NoError(t, err)
	assert.Equal(t, "web", a.Name())
}

func TestDetect_NoMatchReturnsError(t *testing.T) {
	_, err := Detect(t.TempDir())
	assert.Error(t, err)
}

func TestSystem_EnumerateSourceFiles_SkipsBuildAndHiddenDirs(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "src", "lib.rs"), "fn main() {}")
	mustWrite(t, filepath.Join(root, "target", "debug", "generated.rs"), "// generated")
	mustWrite(t, filepath.Join(root, ".git", "hooks", "pre-commit.rs"), "// hook")
	mustWrite(t, filepath.Join(root, "README.md"), "# hi")

	files, err := System{}.EnumerateSourceFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs"}, files)
}

func TestSystem_EnumerateContextFiles(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Cargo.toml"), "[package]\n")
	mustWrite(t, filepath.Join(root, "README.md"), "# hi")
	mustWrite(t, filepath.Join(root, "src", "lib.rs"), "fn main() {}")

	files, err := System{}.EnumerateContextFiles(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Cargo.toml", "README.md"}, files)
}

func TestWeb_EnumerateSourceFiles(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "src", "index.ts"), "export {}")
	mustWrite(t, filepath.Join(root, "node_modules", "dep", "index.js"), "module.exports = {}")

	files, err := Web{}.EnumerateSourceFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.ts"}, files)
}

func TestSystem_ClassifyTestOutput(t *testing.T) {
	sys := System{}

	result := sys.ClassifyTestOutput("running 3 tests\ntest ok\n", 0, false)
	assert.Equal(t, Passed, result.Outcome)

	result = sys.ClassifyTestOutput("running 3 tests\ntest it_adds_correctly ... FAILED\n", 1, false)
	assert.Equal(t, Failed, result.Outcome)
	assert.Equal(t, "it_adds_correctly", result.FailingTest)

	result = sys.ClassifyTestOutput("error[E0308]: mismatched types\n", 1, false)
	assert.Equal(t, CompileError, result.Outcome)

	result = sys.ClassifyTestOutput("", 1, true)
	assert.Equal(t, Timeout, result.Outcome)
}

func TestWeb_ClassifyTestOutput(t *testing.T) {
	web := Web{}

	result := web.ClassifyTestOutput("PASS src/index.test.ts\n", 0, false)
	assert.Equal(t, Passed, result.Outcome)

	result = web.ClassifyTestOutput("FAIL src/index.test.ts\n  ✕ adds numbers correctly\n", 1, false)
	assert.Equal(t, Failed, result.Outcome)
	assert.Equal(t, "adds numbers correctly", result.FailingTest)

	result = web.ClassifyTestOutput("src/index.ts(10,5): error TS2322: type mismatch\n", 1, false)
	assert.Equal(t, CompileError, result.Outcome)
}

func TestPrompts_IncludeFilePathAndContent(t *testing.T) {
	prompt := System{}.PromptCodeUnderstanding("src/lib.rs", "fn main() {}")
	assert.Contains(t, prompt, "src/lib.rs")
	assert.Contains(t, prompt, "fn main() {}")

	fixPrompt := Web{}.PromptMutationFix("src/index.ts", "export {}", "flip comparison", "error TS2322")
	assert.Contains(t, fixPrompt, "flip comparison")
	assert.Contains(t, fixPrompt, "error TS2322")
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
