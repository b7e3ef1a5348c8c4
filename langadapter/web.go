package langadapter

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// Web is the TypeScript/JavaScript variant: detects a repository by
// package.json, builds/tests via the manifest's npm scripts.
type Web struct{}

func init() {
	Register(Web{})
}

func (Web) Name() string { return "web" }

func (Web) DetectsAt(root string) bool {
	return fileExists(filepath.Join(root, "package.json"))
}

var webSourceGlobs = []string{"**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx"}

func (Web) EnumerateSourceFiles(root string) ([]string, error) {
	return walkFiles(root, webSourceGlobs, defaultSkipDirs)
}

var webContextGlobs = []string{"**/*.md", "**/README*", "**/package.json", "**/tsconfig.json"}

func (Web) EnumerateContextFiles(root string) ([]string, error) {
	return walkFiles(root, webContextGlobs, defaultSkipDirs)
}

func (Web) AnalysisSizeLimits() SizeLimits {
	return SizeLimits{Min: 10, Max: 150_000}
}

func (Web) MutationSizeLimits() SizeLimits {
	return SizeLimits{Min: 10, Max: 40_000}
}

func (Web) DefaultCommands() Commands {
	return Commands{
		BuildCommand:   "npm run build",
		TestCommand:    "npm test -- --runInBand",
		TimeoutSeconds: 180,
	}
}

func (Web) PromptCodeUnderstanding(filePath, content string) string {
	return fmt.Sprintf(
		"You are analyzing a TypeScript/JavaScript source file at %q.\n"+
			"Summarize what this file does: its exports, the invariants it upholds, and any notable dependencies.\n"+
			"Be concise and concrete; do not restate the code.\n\n```ts\n%s\n```\n",
		filePath, content)
}

func (Web) PromptDocumentation(filePath, content string) string {
	return fmt.Sprintf(
		"Read the following TypeScript/JavaScript file at %q and extract any doc comments, usage notes, or examples worth surfacing in project documentation. If there is nothing documentation-worthy, say so plainly.\n\n```ts\n%s\n```\n",
		filePath, content)
}

func (Web) PromptArchitectureFileAnalysis(filePath, content string) string {
	return fmt.Sprintf(
		"Analyze the architectural role of the file at %q: what module or subsystem it belongs to, what it exposes, and what it depends on.\n\n```ts\n%s\n```\n",
		filePath, content)
}

func (Web) PromptDiagramExtraction(diagramType, filePath, content string) string {
	return diagramExtractionPrompt(diagramType, "TypeScript", filePath, content)
}

func (Web) PromptArchitectureSummary(repositoryName, combinedAnalysis string) string {
	return architectureSummaryPrompt("TypeScript", repositoryName, combinedAnalysis)
}

func (Web) PromptMutation(filePath, content string) string {
	return mutationGenerationPrompt("TypeScript", filePath, content)
}

func (Web) PromptMutationFix(filePath, originalContent, mutationDescription, errorTail string) string {
	return mutationFixPrompt("TypeScript", filePath, originalContent, mutationDescription, errorTail)
}

var (
	webFailureLine     = regexp.MustCompile(`(?m)^\s*(?:✕|×)\s+(.+)$`)
	webFailingFileLine = regexp.MustCompile(`(?m)^\s*FAIL\s+(.+)$`)
)

func (Web) ClassifyTestOutput(combinedOutput string, exitCode int, timedOut bool) TestResult {
	if timedOut {
		return TestResult{Outcome: Timeout}
	}
	if matchesCompileFailure(combinedOutput) {
		return TestResult{Outcome: CompileError}
	}
	if exitCode == 0 {
		return TestResult{Outcome: Passed}
	}
	if m := webFailureLine.FindStringSubmatch(combinedOutput); len(m) > 1 {
		return TestResult{Outcome: Failed, FailingTest: m[1]}
	}
	if m := webFailingFileLine.FindStringSubmatch(combinedOutput); len(m) > 1 {
		return TestResult{Outcome: Failed, FailingTest: m[1]}
	}
	return TestResult{Outcome: Failed}
}

var tsCompileErrorPattern = regexp.MustCompile(`(?m)^.+\.tsx?\(\d+,\d+\): error TS\d+:`)

func matchesCompileFailure(output string) bool {
	return tsCompileErrorPattern.MatchString(output)
}
