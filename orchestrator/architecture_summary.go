package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/noctum/noctum/hashutil"
	"github.com/noctum/noctum/langadapter"
	"github.com/noctum/noctum/llmclient"
	"github.com/noctum/noctum/metrics"
	"github.com/noctum/noctum/store"
)

// architectureSummaryAnalysisType is the AnalysisType recorded for the
// repository-wide aggregate built by runArchitectureSummary, distinct from
// the per-file analysisKind values in tasks.go: it is produced once per
// cycle from already-persisted per-file results, never queued as its own
// analysisTask.
const architectureSummaryAnalysisType = "architecture_summary"

// maxArchitectureSummaryChars bounds the concatenated per-file analysis fed
// into the architecture summary prompt, mirroring diagram.maxAggregateChars.
const maxArchitectureSummaryChars = 50_000

const architectureSummaryTruncationMarker = "\n[... truncated ...]\n"

// aggregateArchitectureInputs concatenates every file's documentation and
// architecture_file_analysis result (one paragraph per file, headed by its
// path) up to maxArchitectureSummaryChars, and returns the aggregate
// content hash: a SHA-256 over the concatenation of the surviving rows'
// per-file content hashes, in the order concatenated. The summary
// regenerates only when this hash changes.
func aggregateArchitectureInputs(documentation, architecture []store.AnalysisResult) (text string, contentHash string) {
	var body strings.Builder
	var hashInput strings.Builder

	for _, r := range documentation {
		trimmed := strings.TrimSpace(r.Result)
		if trimmed == "" {
			continue
		}
		fmt.Fprintf(&body, "## %s (documentation)\n%s\n\n", r.FilePath, trimmed)
		hashInput.WriteString(r.ContentHash)
	}
	for _, r := range architecture {
		trimmed := strings.TrimSpace(r.Result)
		if trimmed == "" {
			continue
		}
		fmt.Fprintf(&body, "## %s (architecture)\n%s\n\n", r.FilePath, trimmed)
		hashInput.WriteString(r.ContentHash)
	}

	aggregated := body.String()
	if len(aggregated) > maxArchitectureSummaryChars {
		aggregated = aggregated[:maxArchitectureSummaryChars] + architectureSummaryTruncationMarker
	}
	return aggregated, hashutil.HashString(hashInput.String())
}

// runArchitectureSummary aggregates every stored documentation and
// architecture_file_analysis result for repo, and — only if the aggregate
// content hash differs from the last persisted architecture_summary —
// asks adapter's language-specific prompt for a repository-level summary
// and persists it. It mirrors diagram.Engine.Generate's aggregate-then-
// regenerate-on-change shape, but collapses onto a single AnalysisResult
// row instead of a DOT graph.
func (d *Daemon) runArchitectureSummary(ctx context.Context, gens []llmclient.Generator, adapter langadapter.Adapter, repo store.Repository) error {
	if len(gens) == 0 {
		return nil
	}

	documentation, err := d.store.LatestAnalysisResultsByType(repo.ID, "documentation")
	if err != nil {
		return fmt.Errorf("load documentation results: %w", err)
	}
	architecture, err := d.store.LatestAnalysisResultsByType(repo.ID, "architecture_file_analysis")
	if err != nil {
		return fmt.Errorf("load architecture analysis results: %w", err)
	}

	combined, contentHash := aggregateArchitectureInputs(documentation, architecture)
	if combined == "" {
		return nil
	}

	d.store.Lock()
	defer d.store.Unlock()

	previousHash, err := d.store.LatestContentHash(repo.ID, repo.Path, architectureSummaryAnalysisType)
	if err != nil {
		return fmt.Errorf("load previous architecture summary hash: %w", err)
	}
	if previousHash == contentHash {
		return nil
	}

	prompt := adapter.PromptArchitectureSummary(repo.Name, combined)
	text, err := gens[0].Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate architecture summary: %w", err)
	}

	if err := d.store.AppendAnalysisResult(&store.AnalysisResult{
		RepositoryID: repo.ID,
		FilePath:     repo.Path,
		AnalysisType: architectureSummaryAnalysisType,
		Result:       text,
		ContentHash:  contentHash,
	}); err != nil {
		return fmt.Errorf("persist architecture summary: %w", err)
	}
	metrics.AnalysisResultsTotal.WithLabelValues(architectureSummaryAnalysisType).Inc()
	return nil
}
