package mutation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noctum/noctum/langadapter"
	"github.com/noctum/noctum/llmclient/testutil"
)

// stubAdapter satisfies langadapter.Adapter with prompt builders that just
// echo their inputs, enough to drive Generate/GenerateFix without a real
// language variant.
type stubAdapter struct{}

func (stubAdapter) Name() string                                  { return "stub" }
func (stubAdapter) DetectsAt(string) bool                         { return true }
func (stubAdapter) EnumerateSourceFiles(string) ([]string, error) { return nil, nil }
func (stubAdapter) EnumerateContextFiles(string) ([]string, error) {
	return nil, nil
}
func (stubAdapter) AnalysisSizeLimits() langadapter.SizeLimits { return langadapter.SizeLimits{} }
func (stubAdapter) MutationSizeLimits() langadapter.SizeLimits { return langadapter.SizeLimits{} }
func (stubAdapter) DefaultCommands() langadapter.Commands      { return langadapter.Commands{} }
func (stubAdapter) PromptCodeUnderstanding(string, string) string        { return "" }
func (stubAdapter) PromptDocumentation(string, string) string            { return "" }
func (stubAdapter) PromptArchitectureFileAnalysis(string, string) string { return "" }
func (stubAdapter) PromptDiagramExtraction(string, string, string) string { return "" }
func (stubAdapter) PromptArchitectureSummary(string, string) string       { return "" }
func (stubAdapter) PromptMutation(filePath, content string) string {
	return "mutate:" + filePath + ":" + content
}
func (stubAdapter) PromptMutationFix(filePath, originalContent, description, errorTail string) string {
	return "fix:" + filePath + ":" + description + ":" + errorTail
}
func (stubAdapter) ClassifyTestOutput(combinedOutput string, exitCode int, timedOut bool) langadapter.TestResult {
	if timedOut {
		return langadapter.TestResult{Outcome: langadapter.Timeout}
	}
	if exitCode == 0 {
		return langadapter.TestResult{Outcome: langadapter.Passed}
	}
	return langadapter.TestResult{Outcome: langadapter.Failed}
}

func TestGenerate_ValidMutationsSurvive(t *testing.T) {
	content := "line one\nline two\nline three"
	resp := `{"mutations":[{"replacements":[{"line_number":2,"find":"two","replace":"TWO"}],"description":"flip","reasoning":"why not"}]}`
	gen := &testutil.Mock{Available: true, Responses: []string{resp}}

	mutations, err := Generate(context.Background(), gen, stubAdapter{}, "f.rs", content, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, mutations, 1)
	assert.Equal(t, "flip", mutations[0].Description)
	assert.Equal(t, 2, mutations[0].Replacements[0].LineNumber)
}

func TestGenerate_DropsMutationWithUnlocatableFind(t *testing.T) {
	content := "line one\nline two\nline three"
	resp := `{"mutations":[
		{"replacements":[{"line_number":2,"find":"nonexistent text","replace":"x"}],"description":"bad"},
		{"replacements":[{"line_number":1,"find":"one","replace":"ONE"}],"description":"good"}
	]}`
	gen := &testutil.Mock{Available: true, Responses: []string{resp}}

	mutations, err := Generate(context.Background(), gen, stubAdapter{}, "f.rs", content, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, mutations, 1)
	assert.Equal(t, "good", mutations[0].Description)
}

func TestGenerate_RejectsFindEqualsReplace(t *testing.T) {
	content := "a\nb\nc"
	resp := `{"mutations":[{"replacements":[{"line_number":1,"find":"a","replace":"a"}],"description":"noop"}]}`
	gen := &testutil.Mock{Available: true, Responses: []string{resp}}

	mutations, err := Generate(context.Background(), gen, stubAdapter{}, "f.rs", content, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, mutations)
}

func TestGenerate_TruncatesAtMaxMutationsPerFile(t *testing.T) {
	content := "a\nb\nc"
	resp := `{"mutations":[
		{"replacements":[{"line_number":1,"find":"a","replace":"A"}],"description":"m1"},
		{"replacements":[{"line_number":2,"find":"b","replace":"B"}],"description":"m2"},
		{"replacements":[{"line_number":3,"find":"c","replace":"C"}],"description":"m3"}
	]}`
	gen := &testutil.Mock{Available: true, Responses: []string{resp}}

	cfg := DefaultConfig()
	cfg.MaxMutationsPerFile = 2

	mutations, err := Generate(context.Background(), gen, stubAdapter{}, "f.rs", content, cfg)
	require.NoError(t, err)
	assert.Len(t, mutations, 2)
}

func TestGenerate_WindowSearchToleratesLineDrift(t *testing.T) {
	content := "a\nb\nc\nd\ne\nf"
	// actual text is on line 5, LLM said line 2 (drift of 3, within tolerance)
	resp := `{"mutations":[{"replacements":[{"line_number":2,"find":"e","replace":"E"}],"description":"drifted"}]}`
	gen := &testutil.Mock{Available: true, Responses: []string{resp}}

	mutations, err := Generate(context.Background(), gen, stubAdapter{}, "f.rs", content, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, mutations, 1)
	assert.Equal(t, 5, mutations[0].Replacements[0].LineNumber)
}

func TestGenerateFix_ReturnsCorrectedMutation(t *testing.T) {
	original := "fn add(a: i32, b: i32) -> i32 {\n    a + b\n}"
	resp := `{"replacements":[{"line_number":2,"find":"a + b","replace":"a - b"}],"description":"fixed","reasoning":"compiled now"}`
	gen := &testutil.Mock{Available: true, Responses: []string{resp}}

	failed := Mutation{Description: "broken attempt"}
	fixed, ok := GenerateFix(context.Background(), gen, stubAdapter{}, "f.rs", original, failed, "error: type mismatch", DefaultConfig())
	require.True(t, ok)
	assert.Equal(t, "fixed", fixed.Description)
}

func TestGenerateFix_InvalidResponseFails(t *testing.T) {
	original := "a\nb\nc"
	gen := &testutil.Mock{Available: true, Responses: []string{`{"replacements":[],"description":"empty"}`}}

	_, ok := GenerateFix(context.Background(), gen, stubAdapter{}, "f.rs", original, Mutation{}, "error", DefaultConfig())
	assert.False(t, ok)
}
