package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/noctum/noctum/hashutil"
	"github.com/noctum/noctum/langadapter"
	"github.com/noctum/noctum/llmclient"
	"github.com/noctum/noctum/metrics"
	"github.com/noctum/noctum/store"
)

// analysisQueueCapacity bounds the shared multi-producer/multi-consumer
// queue feeding the per-endpoint worker pool. A slow pool of workers
// back-pressures the producer once it's full, which is the point: it
// throttles how fast this cycle burns through endpoints.
const analysisQueueCapacity = 100

// analysisKind selects which prompt an AnalysisTask's worker builds.
type analysisKind string

const (
	kindCodeUnderstanding analysisKind = "code_understanding"
	kindDocumentation     analysisKind = "documentation"
	kindArchitectureFile  analysisKind = "architecture_file_analysis"
	kindDiagramExtraction analysisKind = "diagram_extraction"
)

// analysisTask is one unit of LLM work: analyze one file one way.
type analysisTask struct {
	Kind        analysisKind
	DiagramType string // set only when Kind == kindDiagramExtraction
	FilePath    string // original repository path, for persistence
	Content     string
	ContentHash string
}

// runAnalysisQueue enqueues every task, then drains it with one worker
// goroutine per entry in gens, each bound to a distinct LLM endpoint.
// Workers terminate when the queue is closed and drained; cancellation is
// checked between tasks via ctx. The Diagram Engine's later aggregation
// pass reads extractions back out of the Store, so this stage only needs
// to persist them, not hand them back directly.
func runAnalysisQueue(ctx context.Context, logger *slog.Logger, gens []llmclient.Generator, adapter langadapter.Adapter, st *store.Store, repositoryID string, tasks []analysisTask) {
	if len(gens) == 0 || len(tasks) == 0 {
		return
	}

	queue := make(chan analysisTask, analysisQueueCapacity)
	var wg sync.WaitGroup

	for _, gen := range gens {
		wg.Add(1)
		go func(gen llmclient.Generator) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-queue:
					if !ok {
						return
					}
					runOneTask(ctx, logger, gen, adapter, st, repositoryID, task)
				}
			}
		}(gen)
	}

	go func() {
		defer close(queue)
		for _, t := range tasks {
			select {
			case <-ctx.Done():
				return
			case queue <- t:
			}
		}
	}()

	wg.Wait()
}

func runOneTask(ctx context.Context, logger *slog.Logger, gen llmclient.Generator, adapter langadapter.Adapter, st *store.Store, repositoryID string, task analysisTask) {
	var prompt, analysisType string
	switch task.Kind {
	case kindCodeUnderstanding:
		prompt = adapter.PromptCodeUnderstanding(task.FilePath, task.Content)
		analysisType = "code_understanding"
	case kindDocumentation:
		prompt = adapter.PromptDocumentation(task.FilePath, task.Content)
		analysisType = "documentation"
	case kindArchitectureFile:
		prompt = adapter.PromptArchitectureFileAnalysis(task.FilePath, task.Content)
		analysisType = "architecture_file_analysis"
	case kindDiagramExtraction:
		prompt = adapter.PromptDiagramExtraction(task.DiagramType, task.FilePath, task.Content)
		analysisType = "diagram_extraction_" + task.DiagramType
	default:
		return
	}

	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("analysis call failed", "kind", task.Kind, "file", task.FilePath, "error", err)
		return
	}

	if err := st.AppendAnalysisResult(&store.AnalysisResult{
		RepositoryID: repositoryID,
		FilePath:     task.FilePath,
		AnalysisType: analysisType,
		Result:       text,
		ContentHash:  task.ContentHash,
	}); err != nil {
		logger.Error("persist analysis result failed", "kind", task.Kind, "file", task.FilePath, "error", err)
		return
	}
	metrics.AnalysisResultsTotal.WithLabelValues(analysisType).Inc()
}

// hashFile hashes file content for the idempotency/aggregate-fingerprint
// pipeline.
func hashFile(content []byte) string {
	return hashutil.Hash(content)
}
