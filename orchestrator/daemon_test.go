package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noctum/noctum/config"
	"github.com/noctum/noctum/discoverer"
	"github.com/noctum/noctum/llmclient"
	"github.com/noctum/noctum/llmclient/testutil"
	"github.com/noctum/noctum/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), "orchestrator-test")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func writeCargoProject(t *testing.T, repoRoot string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "Cargo.toml"),
		[]byte("[package]\nname = \"fixture\"\nversion = \"0.1.0\"\n"), 0o644))
	srcDir := filepath.Join(repoRoot, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "main.rs"),
		[]byte("fn main() {\n    println!(\"hello\");\n}\n"), 0o644))
}

func TestRunCycle_PersistsCodeAnalysisResults(t *testing.T) {
	st := newTestStore(t)
	repoRoot := t.TempDir()
	writeCargoProject(t, repoRoot)
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, ".noctum.toml"),
		[]byte("enable_code_analysis = true\n"), 0o644))

	repo, err := st.AddRepository(repoRoot, "fixture", true)
	require.NoError(t, err)

	cfg := &config.ProcessConfig{Schedule: config.ScheduleWindow{StartHour: 0, EndHour: 23, CheckIntervalSeconds: 60}}
	d, _ := New(cfg, st, nil)

	mock := &testutil.Mock{Available: true, Responses: []string{"this file defines a minimal entry point"}}
	gens := []llmclient.Generator{mock}

	err = d.runCycle(context.Background(), *repo, gens)
	require.NoError(t, err)

	results, err := st.LatestAnalysisResultsByType(repo.ID, "code_understanding")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "this file defines a minimal entry point", results[0].Result)
	assert.Equal(t, filepath.Join(repoRoot, "src", "main.rs"), results[0].FilePath)
}

func TestRunCycle_SkipsAllAnalysisWhenRepoConfigDisablesEverything(t *testing.T) {
	st := newTestStore(t)
	repoRoot := t.TempDir()
	writeCargoProject(t, repoRoot)

	repo, err := st.AddRepository(repoRoot, "fixture", true)
	require.NoError(t, err)

	cfg := &config.ProcessConfig{Schedule: config.ScheduleWindow{StartHour: 0, EndHour: 23, CheckIntervalSeconds: 60}}
	d, _ := New(cfg, st, nil)

	mock := &testutil.Mock{Available: true}
	gens := []llmclient.Generator{mock}

	err = d.runCycle(context.Background(), *repo, gens)
	require.NoError(t, err)

	results, err := st.LatestAnalysisResultsForRepo(repo.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunCycle_SkipsAnalysisWhenContentHashUnchanged(t *testing.T) {
	st := newTestStore(t)
	repoRoot := t.TempDir()
	writeCargoProject(t, repoRoot)
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, ".noctum.toml"),
		[]byte("enable_code_analysis = true\n"), 0o644))

	repo, err := st.AddRepository(repoRoot, "fixture", true)
	require.NoError(t, err)

	cfg := &config.ProcessConfig{Schedule: config.ScheduleWindow{StartHour: 0, EndHour: 23, CheckIntervalSeconds: 60}}
	d, _ := New(cfg, st, nil)

	mock := &testutil.Mock{Available: true, Responses: []string{"first pass", "first pass"}}
	gens := []llmclient.Generator{mock}

	require.NoError(t, d.runCycle(context.Background(), *repo, gens))
	results, err := st.LatestAnalysisResultsByType(repo.ID, "code_understanding")
	require.NoError(t, err)
	require.Len(t, results, 1)
	firstCreatedAt := results[0].CreatedAt

	// Second cycle over unchanged content: LatestContentHash matches, so no
	// new LLM call or row should be produced.
	mock.Responses = []string{"should never be used"}
	require.NoError(t, d.runCycle(context.Background(), *repo, gens))
	results, err = st.LatestAnalysisResultsByType(repo.ID, "code_understanding")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, firstCreatedAt, results[0].CreatedAt)
}

func TestRunCycle_PersistsArchitectureSummary(t *testing.T) {
	st := newTestStore(t)
	repoRoot := t.TempDir()
	writeCargoProject(t, repoRoot)
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, ".noctum.toml"),
		[]byte("enable_code_analysis = true\nenable_architecture_analysis = true\n"), 0o644))

	repo, err := st.AddRepository(repoRoot, "fixture", true)
	require.NoError(t, err)

	cfg := &config.ProcessConfig{Schedule: config.ScheduleWindow{StartHour: 0, EndHour: 23, CheckIntervalSeconds: 60}}
	d, _ := New(cfg, st, nil)

	mock := &testutil.Mock{Available: true, Responses: []string{
		"code understanding notes",
		"documentation notes",
		"architecture notes",
		"the repository has one entry point module",
	}}
	gens := []llmclient.Generator{mock}

	require.NoError(t, d.runCycle(context.Background(), *repo, gens))

	summary, err := st.LatestAnalysisResult(repo.ID, repoRoot, "architecture_summary")
	require.NoError(t, err)
	assert.Equal(t, "the repository has one entry point module", summary.Result)
}

func TestRun_TransitionsToStoppingWhenStopRequestedBeforeFirstTick(t *testing.T) {
	st := newTestStore(t)
	cfg := &config.ProcessConfig{Schedule: config.ScheduleWindow{StartHour: 0, EndHour: 0, CheckIntervalSeconds: 1}}
	d, h := New(cfg, st, nil)
	h.Stop()

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop was requested before the first tick")
	}
	assert.Equal(t, Stopping, h.Status())
}

func TestInterruptibleSleep_ReturnsFalseOnStop(t *testing.T) {
	st := newTestStore(t)
	cfg := &config.ProcessConfig{}
	d, h := New(cfg, st, nil)

	tick := time.Unix(0, 0)
	d.now = func() time.Time { return tick }

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Stop()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok := d.interruptibleSleep(ctx, time.Hour)
	assert.False(t, ok)
}

func TestInterruptibleSleep_ReturnsFalseOnContextCancel(t *testing.T) {
	st := newTestStore(t)
	d, _ := New(&config.ProcessConfig{}, st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	ok := d.interruptibleSleep(ctx, time.Hour)
	assert.False(t, ok)
}

func TestCollectRules_DedupesByGlob(t *testing.T) {
	repoCfg := &config.RepoConfig{}
	rule := config.MutationRule{Glob: "**/*.rs", BuildCommand: "cargo check", TestCommand: "cargo test", TimeoutSeconds: 60}
	repoCfg.Mutation.Rules = []config.MutationRule{rule, rule}

	rules := collectRules(repoCfg, discoverer.Project{})
	assert.Len(t, rules, 1)
}
