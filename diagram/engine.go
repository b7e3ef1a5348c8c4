package diagram

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/noctum/noctum/llmclient"
	"github.com/noctum/noctum/metrics"
	"github.com/noctum/noctum/store"
)

// Engine runs the two-phase Diagram Engine (extraction, then aggregation
// and DOT/SVG generation) for one repository cycle.
type Engine struct {
	Store  *store.Store
	Logger *slog.Logger
}

// NewEngine constructs an Engine, defaulting to a stderr text logger.
func NewEngine(st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Engine{Store: st, Logger: logger}
}

// PersistExtraction records one file's extraction for diagramType, keyed
// for idempotency by the file's own content hash.
func (e *Engine) PersistExtraction(repositoryID string, diagramType Type, ex Extraction) error {
	return e.Store.AppendAnalysisResult(&store.AnalysisResult{
		RepositoryID: repositoryID,
		FilePath:     ex.FilePath,
		AnalysisType: "diagram_extraction_" + string(diagramType),
		Result:       ex.Text,
		ContentHash:  ex.ContentHash,
	})
}

// Generate aggregates every stored extraction of diagramType for
// repositoryID (present gates out deleted files), and — only if the
// aggregate content hash differs from the last persisted diagram of this
// type — requests DOT text, parses it, renders it to SVG, and persists
// the result. present is the current on-disk file set, keyed by the same
// FilePath values extractions were stored under; nil means "no files were
// deleted since the last cycle".
func (e *Engine) Generate(ctx context.Context, gens []llmclient.Generator, repositoryID string, diagramType Type, present map[string]bool) (*store.Diagram, error) {
	rows, err := e.Store.LatestAnalysisResultsByType(repositoryID, "diagram_extraction_"+string(diagramType))
	if err != nil {
		return nil, fmt.Errorf("load extractions: %w", err)
	}

	extractions := make([]Extraction, 0, len(rows))
	for _, r := range rows {
		extractions = append(extractions, Extraction{FilePath: r.FilePath, ContentHash: r.ContentHash, Text: r.Result})
	}

	aggregatedText, contentHash := Aggregate(extractions, present)
	if aggregatedText == "" {
		e.Logger.Info("diagram aggregation produced no content, skipping", "diagram_type", diagramType, "repository_id", repositoryID)
		return nil, nil
	}

	previousHash, err := e.Store.LatestDiagramContentHash(repositoryID, string(diagramType))
	if err != nil {
		return nil, fmt.Errorf("load previous diagram hash: %w", err)
	}
	if previousHash == contentHash {
		return nil, nil
	}

	dot, err := GenerateDOT(ctx, gens, diagramType, aggregatedText)
	if err != nil {
		e.Logger.Warn("diagram DOT generation failed", "diagram_type", diagramType, "repository_id", repositoryID, "error", err)
		return nil, err
	}

	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		e.Logger.Warn("diagram SVG render failed", "diagram_type", diagramType, "repository_id", repositoryID, "error", err)
		return nil, err
	}

	d := &store.Diagram{
		RepositoryID: repositoryID,
		DiagramType:  string(diagramType),
		DotContent:   dot,
		SVGContent:   svg,
		ContentHash:  contentHash,
	}
	if err := e.Store.AppendDiagram(d); err != nil {
		return nil, fmt.Errorf("persist diagram: %w", err)
	}
	metrics.DiagramsGeneratedTotal.WithLabelValues(string(diagramType)).Inc()
	return d, nil
}
