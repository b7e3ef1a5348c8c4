package diagram

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noctum/noctum/langadapter"
	"github.com/noctum/noctum/llmclient"
	"github.com/noctum/noctum/llmclient/testutil"
)

// stubAdapter satisfies langadapter.Adapter with a diagram-extraction
// prompt builder that just echoes its inputs.
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
func (stubAdapter) PromptDiagramExtraction(diagramType, filePath, content string) string {
	return diagramType + ":" + filePath + ":" + content
}
func (stubAdapter) PromptArchitectureSummary(string, string) string          { return "" }
func (stubAdapter) PromptMutation(string, string) string                     { return "" }
func (stubAdapter) PromptMutationFix(string, string, string, string) string { return "" }
func (stubAdapter) ClassifyTestOutput(string, int, bool) langadapter.TestResult {
	return langadapter.TestResult{}
}

func TestAggregate_ElidesNoSignificantContentAndDeletedFiles(t *testing.T) {
	extractions := []Extraction{
		{FilePath: "a.rs", ContentHash: "h1", Text: "defines struct Widget"},
		{FilePath: "b.rs", ContentHash: "h2", Text: "no significant content"},
		{FilePath: "c.rs", ContentHash: "h3", Text: "defines trait Renderable"},
	}
	present := map[string]bool{"a.rs": true, "b.rs": true}

	text, hash := Aggregate(extractions, present)
	assert.Contains(t, text, "Widget")
	assert.NotContains(t, text, "Renderable", "deleted file c.rs must be elided")
	assert.NotContains(t, strings.ToLower(text), "no significant content")
	assert.NotEmpty(t, hash)
}

func TestAggregate_EmptyWhenEverythingElided(t *testing.T) {
	extractions := []Extraction{
		{FilePath: "a.rs", ContentHash: "h1", Text: "no significant content"},
	}
	text, _ := Aggregate(extractions, nil)
	assert.Empty(t, text)
}

func TestAggregate_TruncatesAtCapWithMarker(t *testing.T) {
	big := strings.Repeat("x", maxAggregateChars+1000)
	extractions := []Extraction{{FilePath: "big.rs", ContentHash: "h1", Text: big}}

	text, _ := Aggregate(extractions, nil)
	assert.LessOrEqual(t, len(text), maxAggregateChars+len(truncationMarker))
	assert.Contains(t, text, "truncated")
}

func TestAggregate_HashIsDeterministicAndOrderSensitive(t *testing.T) {
	a := []Extraction{{FilePath: "a.rs", ContentHash: "h1", Text: "x"}, {FilePath: "b.rs", ContentHash: "h2", Text: "y"}}
	b := []Extraction{{FilePath: "b.rs", ContentHash: "h2", Text: "y"}, {FilePath: "a.rs", ContentHash: "h1", Text: "x"}}

	_, hashA := Aggregate(a, nil)
	_, hashB := Aggregate(b, nil)
	assert.NotEqual(t, hashA, hashB, "concatenation order affects the aggregate hash")

	_, hashA2 := Aggregate(a, nil)
	assert.Equal(t, hashA, hashA2, "same input yields the same hash")
}

func TestExtract_ReturnsTrimmedTextAndContentHash(t *testing.T) {
	gen := &testutil.Mock{Available: true, Responses: []string{"  module role: renders widgets  "}}

	ex, err := Extract(context.Background(), gen, stubAdapter{}, SystemArchitecture, "f.rs", "fn render() {}")
	require.NoError(t, err)
	assert.Equal(t, "module role: renders widgets", ex.Text)
	assert.NotEmpty(t, ex.ContentHash)
}

func TestStripFences_RemovesDotFence(t *testing.T) {
	fenced := "```dot\ndigraph G {\n  a -> b;\n}\n```"
	assert.Equal(t, "digraph G {\n  a -> b;\n}", stripFences(fenced))
}

func TestStripFences_PassesThroughUnfencedText(t *testing.T) {
	plain := "digraph G { a -> b; }"
	assert.Equal(t, plain, stripFences(plain))
}

func TestParseDOT_ValidGraph(t *testing.T) {
	_, err := ParseDOT("digraph G { a -> b; }")
	assert.NoError(t, err)
}

func TestParseDOT_InvalidGraphReturnsError(t *testing.T) {
	_, err := ParseDOT("this is not dot at all {{{")
	assert.Error(t, err)
}

func TestGenerateDOT_SucceedsOnFirstValidResponse(t *testing.T) {
	gen := &testutil.Mock{Available: true, Responses: []string{"```dot\ndigraph G { a -> b; }\n```"}}

	dot, err := GenerateDOT(context.Background(), []llmclient.Generator{gen}, SystemArchitecture, "facts")
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph")
}

func TestGenerateDOT_RepairsAfterParseFailure(t *testing.T) {
	gen := &testutil.Mock{Available: true, Responses: []string{
		"not valid dot {{{",
		"digraph G { a -> b; }",
	}}

	dot, err := GenerateDOT(context.Background(), []llmclient.Generator{gen}, SystemArchitecture, "facts")
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph")
	assert.GreaterOrEqual(t, gen.CallCount(), 2)
}

func TestGenerateDOT_FailsAfterExhaustingFixAttempts(t *testing.T) {
	gen := &testutil.Mock{Available: true, Responses: []string{"still not valid {{{"}}

	_, err := GenerateDOT(context.Background(), []llmclient.Generator{gen}, SystemArchitecture, "facts")
	assert.Error(t, err)
}

func TestGenerateDOT_NoEndpointsIsAnError(t *testing.T) {
	_, err := GenerateDOT(context.Background(), nil, SystemArchitecture, "facts")
	assert.Error(t, err)
}
