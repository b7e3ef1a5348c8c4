// Package mutation implements LLM-driven mutation testing: generate small
// code mutations via a schema-constrained LLM call, apply them to a
// workspace file, compile-check with LLM-in-the-loop retry on failure,
// run the project's tests, classify the outcome, and always revert the
// file before returning.
package mutation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noctum/noctum/langadapter"
	"github.com/noctum/noctum/llmclient"
)

// MaxCompileRetries bounds the apply/verify/revert loop's build attempts
// per mutation; a fix is requested between attempts, not after the last.
const MaxCompileRetries = 3

// Replacement is one literal find/replace edit. line_number is a hint
// only (the authoritative form is find/replace text); the Engine
// tolerates small LLM line-number drift by searching a window around it.
type Replacement struct {
	LineNumber int    `json:"line_number"`
	Find       string `json:"find"`
	Replace    string `json:"replace"`
}

// Mutation is an atomic batch of replacements representing one candidate
// behavior change, plus the LLM's rationale. It is not a diff.
type Mutation struct {
	Replacements []Replacement `json:"replacements"`
	Reasoning    string        `json:"reasoning"`
	Description  string        `json:"description"`
}

// Config bounds mutation generation and verification for one file.
type Config struct {
	MaxMutationsPerFile int
	LineTolerance       int // N in the spec's "±N-line search window"; default 3
	TimeoutSeconds      int
	MaxTestOutputBytes  int
}

// DefaultConfig returns the mutation engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxMutationsPerFile: 5,
		LineTolerance:       3,
		TimeoutSeconds:      300,
		MaxTestOutputBytes:  4096,
	}
}

type generateResponse struct {
	Mutations []Mutation `json:"mutations"`
}

// mutationSchema is the JSON Schema sent with the structured-generation
// request, constraining the LLM to the {mutations: [...]} shape.
var mutationSchema = []byte(`{
	"type": "object",
	"properties": {
		"mutations": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"replacements": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"line_number": {"type": "integer"},
								"find": {"type": "string"},
								"replace": {"type": "string"}
							},
							"required": ["line_number", "find", "replace"]
						}
					},
					"reasoning": {"type": "string"},
					"description": {"type": "string"}
				},
				"required": ["replacements", "description"]
			}
		}
	},
	"required": ["mutations"]
}`)

// fixSchema constrains the LLM's response to a single corrected mutation.
var fixSchema = []byte(`{
	"type": "object",
	"properties": {
		"replacements": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"line_number": {"type": "integer"},
					"find": {"type": "string"},
					"replace": {"type": "string"}
				},
				"required": ["line_number", "find", "replace"]
			}
		},
		"reasoning": {"type": "string"},
		"description": {"type": "string"}
	},
	"required": ["replacements", "description"]
}`)

// Generate requests mutations for a file's content from adapter-generated
// prompts, validates each raw mutation, and returns at most
// cfg.MaxMutationsPerFile survivors.
func Generate(ctx context.Context, gen llmclient.Generator, adapter langadapter.Adapter, filePath, content string, cfg Config) ([]Mutation, error) {
	prompt := adapter.PromptMutation(filePath, content)

	var resp generateResponse
	if err := gen.GenerateStructured(ctx, prompt, mutationSchema, &resp); err != nil {
		return nil, fmt.Errorf("generate mutations: %w", err)
	}

	lineCount := strings.Count(content, "\n") + 1
	lines := splitLines(content)

	var valid []Mutation
	for _, raw := range resp.Mutations {
		if len(valid) >= cfg.MaxMutationsPerFile {
			break
		}
		m, ok := validateMutation(raw, lines, lineCount, cfg.LineTolerance)
		if ok {
			valid = append(valid, m)
		}
	}
	return valid, nil
}

// GenerateFix requests a single corrected mutation after a compile
// failure, given the original code, the failed mutation's description,
// and a truncated error tail.
func GenerateFix(ctx context.Context, gen llmclient.Generator, adapter langadapter.Adapter, filePath, originalContent string, failed Mutation, errorTail string, cfg Config) (Mutation, bool) {
	prompt := adapter.PromptMutationFix(filePath, originalContent, failed.Description, errorTail)

	var raw Mutation
	if err := gen.GenerateStructured(ctx, prompt, fixSchema, &raw); err != nil {
		return Mutation{}, false
	}

	lineCount := strings.Count(originalContent, "\n") + 1
	lines := splitLines(originalContent)
	return validateMutation(raw, lines, lineCount, cfg.LineTolerance)
}

// validateMutation enforces §4.5.1's post-conditions: non-empty
// replacements; each replacement's line_number within tolerance of the
// file, find non-empty, find != replace, and find locatable on disk. A
// replacement that cannot be located discards the whole mutation — other
// mutations in the batch are unaffected.
func validateMutation(raw Mutation, lines []string, lineCount, tolerance int) (Mutation, bool) {
	if len(raw.Replacements) == 0 {
		return Mutation{}, false
	}

	resolved := make([]Replacement, 0, len(raw.Replacements))
	for _, r := range raw.Replacements {
		if r.Find == "" || r.Find == r.Replace {
			return Mutation{}, false
		}
		if r.LineNumber < 1 || r.LineNumber > lineCount+tolerance {
			return Mutation{}, false
		}
		actualLine, ok := locateFind(lines, r.LineNumber, r.Find, tolerance)
		if !ok {
			return Mutation{}, false
		}
		resolved = append(resolved, Replacement{LineNumber: actualLine, Find: r.Find, Replace: r.Replace})
	}

	return Mutation{Replacements: resolved, Reasoning: raw.Reasoning, Description: raw.Description}, true
}

// locateFind searches for find within [hint-tolerance, hint+tolerance]
// (1-indexed, clamped to the file), falling back to a full-file search on
// miss. Returns the 1-indexed line where find actually occurs.
func locateFind(lines []string, hint int, find string, tolerance int) (int, bool) {
	lo := hint - tolerance
	if lo < 1 {
		lo = 1
	}
	hi := hint + tolerance
	if hi > len(lines) {
		hi = len(lines)
	}
	for i := lo; i <= hi; i++ {
		if strings.Contains(lines[i-1], find) {
			return i, true
		}
	}
	for i := 1; i <= len(lines); i++ {
		if strings.Contains(lines[i-1], find) {
			return i, true
		}
	}
	return 0, false
}

func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

// marshalReplacements serializes a mutation's replacements for
// persistence as MutationResult.ReplacementsJSON.
func marshalReplacements(replacements []Replacement) (string, error) {
	data, err := json.Marshal(replacements)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
