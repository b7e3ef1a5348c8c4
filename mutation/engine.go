package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/noctum/noctum/config"
	"github.com/noctum/noctum/hashutil"
	"github.com/noctum/noctum/langadapter"
	"github.com/noctum/noctum/llmclient"
	"github.com/noctum/noctum/metrics"
	"github.com/noctum/noctum/store"
)

// Target is one file eligible for mutation testing, already matched
// against a repository-config rule.
type Target struct {
	WorkspacePath string // absolute path inside the throwaway workspace
	OriginalPath  string // absolute path in the original repository, for persistence
	WorkDir       string // project root inside the workspace the build/test commands run from
	Rule          config.MutationRule
}

// Engine runs the baseline gate and the per-file mutation loop for one
// repository cycle.
type Engine struct {
	Store   *store.Store
	Adapter langadapter.Adapter
	Gen     llmclient.Generator
	Logger  *slog.Logger
	Config  Config
}

// NewEngine constructs an Engine with DefaultConfig, logging through a
// stderr text handler if logger is nil.
func NewEngine(st *store.Store, adapter langadapter.Adapter, gen llmclient.Generator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Engine{Store: st, Adapter: adapter, Gen: gen, Logger: logger, Config: DefaultConfig()}
}

// BaselineResult records whether a rule's build+test passed against the
// unmutated workspace.
type BaselineResult struct {
	Rule    config.MutationRule
	Workdir string
	Passed  bool
	Reason  string
}

// RunBaselines builds and tests workDir once per rule, returning one
// BaselineResult per rule in rule order. A rule that fails its baseline
// comes back with Passed false and a logged warning, and callers exclude
// it: mutating a file whose project doesn't even build clean tells us
// nothing.
func (e *Engine) RunBaselines(ctx context.Context, workDir string, rules []config.MutationRule) []BaselineResult {
	results := make([]BaselineResult, 0, len(rules))
	for _, rule := range rules {
		res := e.runBaseline(ctx, workDir, rule)
		if !res.Passed {
			e.Logger.Warn("mutation baseline failed, excluding rule", "glob", rule.Glob, "reason", res.Reason)
		}
		results = append(results, res)
	}
	return results
}

func (e *Engine) runBaseline(ctx context.Context, workDir string, rule config.MutationRule) BaselineResult {
	timeout := rule.TimeoutSeconds
	if timeout <= 0 {
		timeout = e.Config.TimeoutSeconds
	}

	if rule.BuildCommand != "" {
		build := run(ctx, workDir, rule.BuildCommand, timeout, e.Config.MaxTestOutputBytes, false)
		if build.TimedOut {
			return BaselineResult{Rule: rule, Workdir: workDir, Passed: false, Reason: "baseline build timed out"}
		}
		if build.ExitCode != 0 {
			return BaselineResult{Rule: rule, Workdir: workDir, Passed: false, Reason: "baseline build failed"}
		}
	}

	test := run(ctx, workDir, rule.TestCommand, timeout, e.Config.MaxTestOutputBytes, false)
	if test.TimedOut {
		return BaselineResult{Rule: rule, Workdir: workDir, Passed: false, Reason: "baseline test timed out"}
	}
	if test.ExitCode != 0 {
		return BaselineResult{Rule: rule, Workdir: workDir, Passed: false, Reason: "baseline test failed"}
	}
	return BaselineResult{Rule: rule, Workdir: workDir, Passed: true}
}

// ProcessFile runs the full generate -> apply/verify/revert loop for one
// target file: it skips the file if a mutation result already exists for
// its current content hash, generates candidate mutations, and tests each
// one in turn, persisting every killed/survived/timeout outcome (never a
// compile_error) before moving to the next.
func (e *Engine) ProcessFile(ctx context.Context, repositoryID string, target Target) error {
	content, err := os.ReadFile(target.WorkspacePath)
	if err != nil {
		return fmt.Errorf("read target file: %w", err)
	}

	limits := e.Adapter.MutationSizeLimits()
	if len(content) < limits.Min || (limits.Max > 0 && len(content) > limits.Max) {
		return nil
	}

	contentHash := hashutil.Hash(content)

	e.Store.Lock()
	defer e.Store.Unlock()

	already, err := e.Store.HasMutationResult(repositoryID, target.OriginalPath, contentHash)
	if err != nil {
		return fmt.Errorf("check mutation idempotency: %w", err)
	}
	if already {
		return nil
	}

	mutations, err := Generate(ctx, e.Gen, e.Adapter, target.OriginalPath, string(content), e.Config)
	if err != nil {
		return fmt.Errorf("generate mutations: %w", err)
	}

	for _, m := range mutations {
		result := e.verifyOne(ctx, target.WorkDir, target, string(content), m)
		metrics.MutationsTotal.WithLabelValues(string(result.TestOutcome)).Inc()
		if result.TestOutcome == store.OutcomeCompileError {
			continue
		}
		result.RepositoryID = repositoryID
		result.FilePath = target.OriginalPath
		result.ContentHash = contentHash
		if err := e.Store.AppendMutationResult(&result); err != nil {
			e.Logger.Error("persist mutation result failed", "file", target.OriginalPath, "error", err)
		}
	}
	return nil
}

// verifyOne applies m to content, builds (up to MaxCompileRetries build
// attempts, asking the LLM for a fix after each failed attempt but the
// last), tests on a successful build, classifies the
// outcome, and always restores the original file content before
// returning — on every exit path, including a panic during apply/build.
func (e *Engine) verifyOne(ctx context.Context, workDir string, target Target, originalContent string, m Mutation) store.MutationResult {
	start := time.Now()
	restored := false
	restore := func() {
		if restored {
			return
		}
		restored = true
		if err := os.WriteFile(target.WorkspacePath, []byte(originalContent), 0o644); err != nil {
			e.Logger.Error("CRITICAL: failed to restore mutated file", "file", target.WorkspacePath, "error", err)
			// second attempt, per the file-restoration contract
			if err2 := os.WriteFile(target.WorkspacePath, []byte(originalContent), 0o644); err2 != nil {
				e.Logger.Error("CRITICAL: second restore attempt also failed", "file", target.WorkspacePath, "error", err2)
			}
		}
	}
	defer restore()

	current := m
	mutated, ok := Apply(originalContent, current)
	if !ok {
		return store.MutationResult{TestOutcome: store.OutcomeCompileError, Description: m.Description, Reasoning: m.Reasoning}
	}

	timeout := target.Rule.TimeoutSeconds
	if timeout <= 0 {
		timeout = e.Config.TimeoutSeconds
	}

	var buildOutput string
	compiled := false
	for attempt := 1; attempt <= MaxCompileRetries; attempt++ {
		if err := os.WriteFile(target.WorkspacePath, []byte(mutated), 0o644); err != nil {
			return store.MutationResult{TestOutcome: store.OutcomeCompileError, Description: m.Description, Reasoning: m.Reasoning}
		}

		if target.Rule.BuildCommand == "" {
			compiled = true
			break
		}

		build := run(ctx, workDir, target.Rule.BuildCommand, timeout, e.Config.MaxTestOutputBytes, true)
		if build.ExitCode == 0 && !build.TimedOut {
			compiled = true
			break
		}
		buildOutput = build.Output

		// restore before asking the LLM to look at clean original code
		if err := os.WriteFile(target.WorkspacePath, []byte(originalContent), 0o644); err != nil {
			e.Logger.Error("restore before fix-prompt failed", "file", target.WorkspacePath, "error", err)
		}

		if attempt == MaxCompileRetries {
			break
		}

		fixed, ok := GenerateFix(ctx, e.Gen, e.Adapter, target.OriginalPath, originalContent, current, buildOutput, e.Config)
		if !ok {
			break
		}
		current = fixed
		mutated, ok = Apply(originalContent, current)
		if !ok {
			break
		}
	}

	replacementsJSON, _ := marshalReplacements(current.Replacements)

	if !compiled {
		return store.MutationResult{
			TestOutcome:      store.OutcomeCompileError,
			Description:      current.Description,
			Reasoning:        current.Reasoning,
			ReplacementsJSON: replacementsJSON,
			ExecutionTimeMs:  time.Since(start).Milliseconds(),
		}
	}

	test := run(ctx, workDir, target.Rule.TestCommand, timeout, e.Config.MaxTestOutputBytes, false)
	classified := e.Adapter.ClassifyTestOutput(test.Output, test.ExitCode, test.TimedOut)

	outcome := classifyOutcome(classified.Outcome)

	return store.MutationResult{
		Description:      current.Description,
		Reasoning:        current.Reasoning,
		ReplacementsJSON: replacementsJSON,
		TestOutcome:      outcome,
		KillingTest:      classified.FailingTest,
		TestOutput:       test.Output,
		ExecutionTimeMs:  time.Since(start).Milliseconds(),
	}
}

// classifyOutcome maps a language adapter's test-level outcome onto the
// mutation-testing vocabulary: a failing test means the mutation was
// caught (killed); a passing test means it slipped through (survived).
func classifyOutcome(o langadapter.TestOutcome) store.TestOutcome {
	switch o {
	case langadapter.Failed:
		return store.OutcomeKilled
	case langadapter.Passed:
		return store.OutcomeSurvived
	case langadapter.Timeout:
		return store.OutcomeTimeout
	default:
		return store.OutcomeCompileError
	}
}
