package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/noctum/noctum/config"
	"github.com/noctum/noctum/diagram"
	"github.com/noctum/noctum/discoverer"
	"github.com/noctum/noctum/langadapter"
	"github.com/noctum/noctum/llmclient"
	"github.com/noctum/noctum/metrics"
	"github.com/noctum/noctum/mutation"
	"github.com/noctum/noctum/store"
	"github.com/noctum/noctum/workspace"
)

// tickInterval is how often interruptibleSleep wakes between cycles to
// recheck the stop flag and the parent context.
const tickInterval = time.Second

// Daemon owns one processing cycle end to end. It is never exposed
// outside cmd/noctumd; callers only ever see its Handle.
type Daemon struct {
	handle *Handle
	config *configHandle
	store  *store.Store
	logger *slog.Logger

	now func() time.Time // overridable for tests
}

// New constructs a Daemon and its externally-visible Handle.
func New(cfg *config.ProcessConfig, st *store.Store, logger *slog.Logger) (*Daemon, *Handle) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	h := newHandle()
	d := &Daemon{
		handle: h,
		config: newConfigHandle(cfg),
		store:  st,
		logger: logger,
		now:    time.Now,
	}
	return d, h
}

// ReloadConfig installs cfg as the daemon's process configuration,
// effective from the next tick. The only writer; workers only read.
func (d *Daemon) ReloadConfig(cfg *config.ProcessConfig) {
	d.config.Set(cfg)
}

// Run is the daemon's outer event loop: each pass checks the stop flag, a
// pending manual trigger, and the schedule window, then sleeps for the
// schedule's check interval, waking once a second to recheck the stop
// flag. A trigger that arrives during the sleep is picked up on the next
// pass. It returns when Stop is requested.
func (d *Daemon) Run(ctx context.Context) {
	for {
		if d.handle.Stopped() {
			d.handle.setState(Stopping)
			return
		}

		triggered := false
		select {
		case <-d.handle.trigger:
			triggered = true
		default:
		}

		cfg := d.config.Get()
		hour := d.now().Hour()
		if triggered || InWindow(cfg.Schedule.StartHour, cfg.Schedule.EndHour, hour) {
			d.handle.setState(Processing)
			d.runAllRepositories(ctx, cfg)
			d.handle.setState(Waiting)
		}

		if !d.interruptibleSleep(ctx, time.Duration(cfg.Schedule.CheckIntervalSeconds)*time.Second) {
			d.handle.setState(Stopping)
			return
		}
	}
}

// interruptibleSleep sleeps for duration, waking once a second to recheck
// the stop flag and the parent context. Returns false if the caller
// should stop.
func (d *Daemon) interruptibleSleep(ctx context.Context, duration time.Duration) bool {
	deadline := d.now().Add(duration)
	for d.now().Before(deadline) {
		if d.handle.Stopped() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(tickInterval):
		}
	}
	return !d.handle.Stopped()
}

func (d *Daemon) runAllRepositories(ctx context.Context, cfg *config.ProcessConfig) {
	repos, err := d.store.ListRepositories(true)
	if err != nil {
		d.logger.Error("list repositories failed", "error", err)
		return
	}

	endpoints := cfg.EnabledEndpoints()
	gens := make([]llmclient.Generator, 0, len(endpoints))
	names := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		gens = append(gens, llmclient.New(ep.URL, ep.Model, llmclient.WithLogger(d.logger)))
		names = append(names, ep.Name)
	}
	gens = instrumentGenerators(gens, names)

	for _, repo := range repos {
		if d.handle.Stopped() {
			return
		}
		if err := d.runCycle(ctx, repo, gens); err != nil {
			d.logger.Error("repository cycle failed", "repository_id", repo.ID, "path", repo.Path, "error", err)
		}
	}
}

// runCycle implements the per-repository processing algorithm: copy,
// load repo config, discover projects, enumerate+hash files, fan out
// analyses, aggregate, mutation-test, and always tear the workspace down.
func (d *Daemon) runCycle(ctx context.Context, repo store.Repository, gens []llmclient.Generator) (err error) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.CycleDuration)
		metrics.CyclesTotal.WithLabelValues(outcomeLabel(err)).Inc()
	}()

	if err := d.store.SetDaemonState(store.StatusProcessing, repo.Path); err != nil {
		d.logger.Warn("set daemon state failed", "error", err)
	}
	defer func() {
		if err := d.store.SetDaemonState(store.StatusIdle, ""); err != nil {
			d.logger.Warn("set daemon state failed", "error", err)
		}
	}()

	ws, err := workspace.Create(repo.Path, "")
	if err != nil {
		return err
	}
	defer ws.Close()

	repoCfg, err := config.LoadRepoConfig(filepath.Join(ws.Root, ".noctum.toml"))
	if err != nil {
		return err
	}

	projects, err := discoverer.Discover(ws.Root)
	if err != nil {
		return err
	}

	diagramEngine := diagram.NewEngine(d.store, d.logger)
	extractionPresent := make(map[string]bool)
	var primaryAdapter langadapter.Adapter

	for _, project := range projects {
		if d.handle.Stopped() {
			return nil
		}

		adapter, err := langadapter.Get(project.Language)
		if err != nil {
			d.logger.Warn("no adapter for discovered project", "language", project.Language, "path", project.RelativePath)
			continue
		}
		if primaryAdapter == nil {
			primaryAdapter = adapter
		}

		sourceFiles, err := adapter.EnumerateSourceFiles(project.Root)
		if err != nil {
			d.logger.Warn("enumerate source files failed", "project", project.RelativePath, "error", err)
			continue
		}
		for i, f := range sourceFiles {
			sourceFiles[i] = filepath.Join(project.Root, filepath.FromSlash(f))
		}

		tasks := d.buildAnalysisTasks(repo.ID, repoCfg, adapter, ws, sourceFiles, extractionPresent)
		if len(tasks) > 0 && len(gens) > 0 {
			runAnalysisQueue(ctx, d.logger, gens, adapter, d.store, repo.ID, tasks)
		}

		if repoCfg.EnableMutationTesting {
			d.runMutationTesting(ctx, repo, project, adapter, repoCfg, ws, gens)
		}
	}

	if repoCfg.EnableDiagramCreation && len(gens) > 0 {
		for _, dt := range diagram.Types {
			if d.handle.Stopped() {
				return nil
			}
			if _, err := diagramEngine.Generate(ctx, gens, repo.ID, dt, extractionPresent); err != nil {
				d.logger.Warn("diagram generation failed", "diagram_type", dt, "error", err)
			}
		}
	}

	if repoCfg.EnableArchitectureAnalysis && primaryAdapter != nil && len(gens) > 0 && !d.handle.Stopped() {
		if err := d.runArchitectureSummary(ctx, gens, primaryAdapter, repo); err != nil {
			d.logger.Warn("architecture summary failed", "repository_id", repo.ID, "error", err)
		}
	}

	return nil
}

// buildAnalysisTasks reads every source file once and builds the task set
// for whichever analyses are enabled, recording which original paths are
// currently present (for the diagram aggregation's deleted-file elision).
// A file outside adapter's AnalysisSizeLimits is skipped entirely; a task
// kind whose latest stored content_hash already matches the file's current
// hash is skipped individually, since its analysis is already up to date.
func (d *Daemon) buildAnalysisTasks(repositoryID string, repoCfg *config.RepoConfig, adapter langadapter.Adapter, ws *workspace.Workspace, sourceFiles []string, present map[string]bool) []analysisTask {
	var tasks []analysisTask
	limits := adapter.AnalysisSizeLimits()

	for _, path := range sourceFiles {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if len(content) < limits.Min || (limits.Max > 0 && len(content) > limits.Max) {
			continue
		}
		originalPath, err := ws.ToOriginalPath(path)
		if err != nil {
			originalPath = path
		}
		present[originalPath] = true
		contentHash := hashFile(content)

		if repoCfg.EnableCodeAnalysis {
			if d.isStale(repositoryID, originalPath, "code_understanding", contentHash) {
				tasks = append(tasks, analysisTask{Kind: kindCodeUnderstanding, FilePath: originalPath, Content: string(content), ContentHash: contentHash})
			}
			if d.isStale(repositoryID, originalPath, "documentation", contentHash) {
				tasks = append(tasks, analysisTask{Kind: kindDocumentation, FilePath: originalPath, Content: string(content), ContentHash: contentHash})
			}
		}
		if repoCfg.EnableArchitectureAnalysis && d.isStale(repositoryID, originalPath, "architecture_file_analysis", contentHash) {
			tasks = append(tasks, analysisTask{Kind: kindArchitectureFile, FilePath: originalPath, Content: string(content), ContentHash: contentHash})
		}
		if repoCfg.EnableDiagramCreation {
			for _, dt := range diagram.Types {
				if d.isStale(repositoryID, originalPath, "diagram_extraction_"+string(dt), contentHash) {
					tasks = append(tasks, analysisTask{Kind: kindDiagramExtraction, DiagramType: string(dt), FilePath: originalPath, Content: string(content), ContentHash: contentHash})
				}
			}
		}
	}
	return tasks
}

// isStale reports whether the latest stored content_hash for (repositoryID,
// filePath, analysisType) differs from contentHash, i.e. whether this file
// still needs an LLM call for that analysis type. A lookup failure fails
// open (treats the file as stale) so one bad query never silently starves
// a file of analysis.
func (d *Daemon) isStale(repositoryID, filePath, analysisType, contentHash string) bool {
	previous, err := d.store.LatestContentHash(repositoryID, filePath, analysisType)
	if err != nil {
		d.logger.Warn("content hash lookup failed", "file", filePath, "analysis_type", analysisType, "error", err)
		return true
	}
	return previous != contentHash
}

func (d *Daemon) runMutationTesting(ctx context.Context, repo store.Repository, project discoverer.Project, adapter langadapter.Adapter, repoCfg *config.RepoConfig, ws *workspace.Workspace, gens []llmclient.Generator) {
	if len(gens) == 0 {
		return
	}

	engine := mutation.NewEngine(d.store, adapter, gens[0], d.logger)

	rules := collectRules(repoCfg, project)
	if len(rules) == 0 {
		return
	}
	baselines := engine.RunBaselines(ctx, project.Root, rules)

	sourceFiles, err := adapter.EnumerateSourceFiles(project.Root)
	if err != nil {
		return
	}
	for i, f := range sourceFiles {
		sourceFiles[i] = filepath.Join(project.Root, filepath.FromSlash(f))
	}

	for _, baseline := range baselines {
		if !baseline.Passed {
			continue
		}
		if d.handle.Stopped() {
			return
		}
		for _, path := range sourceFiles {
			rel, err := filepath.Rel(project.Root, path)
			if err != nil {
				continue
			}
			rule, ok := repoCfg.MatchRule(filepath.ToSlash(rel))
			if !ok || rule.Glob != baseline.Rule.Glob {
				continue
			}
			originalPath, err := ws.ToOriginalPath(path)
			if err != nil {
				originalPath = path
			}
			target := mutation.Target{
				WorkspacePath: path,
				OriginalPath:  originalPath,
				WorkDir:       project.Root,
				Rule:          rule,
			}
			if err := engine.ProcessFile(ctx, repo.ID, target); err != nil {
				d.logger.Warn("mutation testing failed for file", "file", originalPath, "error", err)
			}
		}
	}

	d.recordMutationScore(repo)
}

// recordMutationScore snapshots the repository's overall mutation score
// into a gauge after a mutation testing pass. Per-outcome counters are
// incremented incrementally inside mutation.Engine itself, at the point
// each outcome is determined; re-deriving them from the Store's
// all-time summary here would double-count across cycles.
func (d *Daemon) recordMutationScore(repo store.Repository) {
	summary, err := d.store.MutationSummaryForRepo(repo.ID)
	if err != nil {
		d.logger.Warn("mutation summary failed", "repository_id", repo.ID, "error", err)
		return
	}
	metrics.MutationScore.WithLabelValues(repo.Name).Set(summary.Score())
}

// collectRules returns the repository's declared mutation rules, unique
// by glob. project is unused today but kept in the signature so a future
// per-project rule scope (distinct rule sets for a workspace's different
// language members) doesn't change every call site.
func collectRules(repoCfg *config.RepoConfig, _ discoverer.Project) []config.MutationRule {
	seen := make(map[string]bool)
	var rules []config.MutationRule
	for _, r := range repoCfg.Mutation.Rules {
		if seen[r.Glob] {
			continue
		}
		seen[r.Glob] = true
		rules = append(rules, r)
	}
	return rules
}
