package langadapter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// System is the Cargo/Rust variant: detects a repository by Cargo.toml,
// builds with `cargo check`, tests with `cargo test`.
type System struct{}

func init() {
	Register(System{})
}

func (System) Name() string { return "system" }

func (System) DetectsAt(root string) bool {
	return fileExists(filepath.Join(root, "Cargo.toml"))
}

var systemSourceGlobs = []string{"**/*.rs"}

func (System) EnumerateSourceFiles(root string) ([]string, error) {
	return walkFiles(root, systemSourceGlobs, defaultSkipDirs)
}

var systemContextGlobs = []string{"**/*.md", "**/README*", "**/Cargo.toml", "**/Cargo.lock"}

func (System) EnumerateContextFiles(root string) ([]string, error) {
	return walkFiles(root, systemContextGlobs, defaultSkipDirs)
}

func (System) AnalysisSizeLimits() SizeLimits {
	return SizeLimits{Min: 10, Max: 200_000}
}

func (System) MutationSizeLimits() SizeLimits {
	return SizeLimits{Min: 10, Max: 50_000}
}

func (System) DefaultCommands() Commands {
	return Commands{
		BuildCommand:   "cargo check",
		TestCommand:    "cargo test -- --test-threads=1",
		TimeoutSeconds: 300,
	}
}

func (System) PromptCodeUnderstanding(filePath, content string) string {
	return fmt.Sprintf(
		"You are analyzing a Rust source file at %q.\n"+
			"Summarize what this file does: its public items, the invariants it upholds, and any notable dependencies.\n"+
			"Be concise and concrete; do not restate the code.\n\n```rust\n%s\n```\n",
		filePath, content)
}

func (System) PromptDocumentation(filePath, content string) string {
	return fmt.Sprintf(
		"Read the following Rust source file at %q and extract any doc comments, usage notes, or examples worth surfacing in project documentation. If there is nothing documentation-worthy, say so plainly.\n\n```rust\n%s\n```\n",
		filePath, content)
}

func (System) PromptArchitectureFileAnalysis(filePath, content string) string {
	return fmt.Sprintf(
		"Analyze the architectural role of the Rust file at %q: what module or subsystem it belongs to, what it exposes, and what it depends on.\n\n```rust\n%s\n```\n",
		filePath, content)
}

func (System) PromptDiagramExtraction(diagramType, filePath, content string) string {
	return diagramExtractionPrompt(diagramType, "Rust", filePath, content)
}

func (System) PromptArchitectureSummary(repositoryName, combinedAnalysis string) string {
	return architectureSummaryPrompt("Rust", repositoryName, combinedAnalysis)
}

func (System) PromptMutation(filePath, content string) string {
	return mutationGenerationPrompt("Rust", filePath, content)
}

func (System) PromptMutationFix(filePath, originalContent, mutationDescription, errorTail string) string {
	return mutationFixPrompt("Rust", filePath, originalContent, mutationDescription, errorTail)
}

var (
	rustFailureLine = regexp.MustCompile(`(?m)^test (\S+) \.\.\. FAILED$`)
	rustErrorLine   = regexp.MustCompile(`(?m)^error(\[E\d+\])?:`)
)

func (System) ClassifyTestOutput(combinedOutput string, exitCode int, timedOut bool) TestResult {
	if timedOut {
		return TestResult{Outcome: Timeout}
	}
	if rustErrorLine.MatchString(combinedOutput) && !strings.Contains(combinedOutput, "running ") {
		return TestResult{Outcome: CompileError}
	}
	if exitCode == 0 {
		return TestResult{Outcome: Passed}
	}
	if m := rustFailureLine.FindStringSubmatch(combinedOutput); len(m) > 1 {
		return TestResult{Outcome: Failed, FailingTest: m[1]}
	}
	return TestResult{Outcome: Failed}
}
