// Package diagram extracts structural facts from source files via the LLM,
// aggregates them per diagram type, and turns the aggregate into a DOT
// graph and a rendered SVG.
package diagram

import (
	"context"
	"fmt"
	"strings"

	"github.com/noctum/noctum/hashutil"
	"github.com/noctum/noctum/langadapter"
	"github.com/noctum/noctum/llmclient"
)

// Type identifies one of the three diagram kinds the Diagram Engine
// produces per repository cycle.
type Type string

const (
	SystemArchitecture Type = "system_architecture"
	DataFlow           Type = "data_flow"
	DatabaseSchema     Type = "database_schema"
)

// Types lists every diagram type the engine produces, in the order the
// orchestrator generates them.
var Types = []Type{SystemArchitecture, DataFlow, DatabaseSchema}

// noSignificantContent is the sentinel response an adapter's extraction
// prompt asks the LLM to return for a file with nothing diagram-worthy;
// these responses are elided during aggregation.
const noSignificantContent = "no significant content"

// maxAggregateChars bounds the concatenated extraction text fed into the
// DOT generation prompt.
const maxAggregateChars = 50_000

const truncationMarker = "\n[... truncated ...]\n"

// maxFixAttempts bounds DOT parse-fix re-prompts, round-robined across
// the caller-supplied generators (one per enabled endpoint).
const maxFixAttempts = 3

// Extraction is one file's extraction result for one diagram type.
type Extraction struct {
	FilePath    string
	ContentHash string
	Text        string // elided from aggregation if noSignificantContent
}

// Extract asks gen to extract diagram-relevant facts from one file.
func Extract(ctx context.Context, gen llmclient.Generator, adapter langadapter.Adapter, diagramType Type, filePath, content string) (Extraction, error) {
	prompt := adapter.PromptDiagramExtraction(string(diagramType), filePath, content)
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		return Extraction{}, fmt.Errorf("extract %s from %s: %w", diagramType, filePath, err)
	}
	return Extraction{
		FilePath:    filePath,
		ContentHash: hashutil.HashString(content),
		Text:        strings.TrimSpace(text),
	}, nil
}

// Aggregate elides deleted files (absent from present), "no significant
// content" responses, and empty text, then concatenates the survivors
// (one paragraph per file, headed by its path) up to maxAggregateChars,
// appending a truncation marker if the cap was hit. It also returns the
// aggregate content hash: a SHA-256 over the concatenation of the
// surviving extractions' per-file content hashes, in the order they were
// concatenated — diagrams regenerate only when this hash changes.
func Aggregate(extractions []Extraction, present map[string]bool) (text string, contentHash string) {
	var body strings.Builder
	var hashInput strings.Builder

	for _, e := range extractions {
		if present != nil && !present[e.FilePath] {
			continue
		}
		trimmed := strings.TrimSpace(e.Text)
		if trimmed == "" || strings.EqualFold(trimmed, noSignificantContent) {
			continue
		}
		fmt.Fprintf(&body, "## %s\n%s\n\n", e.FilePath, trimmed)
		hashInput.WriteString(e.ContentHash)
	}

	aggregated := body.String()
	if len(aggregated) > maxAggregateChars {
		aggregated = aggregated[:maxAggregateChars] + truncationMarker
	}

	return aggregated, hashutil.HashString(hashInput.String())
}
