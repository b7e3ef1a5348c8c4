package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// MutationRule selects files for mutation testing by glob and names the
// build/test commands used to validate a mutation against that file.
// Rules are evaluated top-to-bottom; the first match wins.
type MutationRule struct {
	Glob           string `toml:"glob"`
	BuildCommand   string `toml:"build_command"`
	TestCommand    string `toml:"test_command"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type mutationBlock struct {
	Rules []MutationRule `toml:"rules"`
}

// RepoConfig is the per-repository `.noctum.toml` contract: four
// independent enable flags plus mutation rules. All flags default to
// false; a missing or whitespace-only file is equivalent to all-defaults.
type RepoConfig struct {
	EnableCodeAnalysis         bool `toml:"enable_code_analysis"`
	EnableArchitectureAnalysis bool `toml:"enable_architecture_analysis"`
	EnableDiagramCreation      bool `toml:"enable_diagram_creation"`
	EnableMutationTesting      bool `toml:"enable_mutation_testing"`

	Mutation mutationBlock `toml:"mutation"`
}

// DefaultRepoConfig returns the all-flags-false, no-rules configuration
// used when `.noctum.toml` is absent or empty.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{}
}

// LoadRepoConfig reads `.noctum.toml` at path. A missing file, or one whose
// contents are entirely whitespace, yields DefaultRepoConfig rather than an
// error.
func LoadRepoConfig(path string) (*RepoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRepoConfig(), nil
		}
		return nil, fmt.Errorf("read repo config: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return DefaultRepoConfig(), nil
	}

	cfg := DefaultRepoConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse repo config: %w", err)
	}
	for i, rule := range cfg.Mutation.Rules {
		if rule.Glob == "" {
			return nil, fmt.Errorf("mutation rule %d: glob is required", i)
		}
		if !doublestar.ValidatePattern(rule.Glob) {
			return nil, fmt.Errorf("mutation rule %d: invalid glob %q", i, rule.Glob)
		}
		if rule.TimeoutSeconds <= 0 {
			return nil, fmt.Errorf("mutation rule %d: timeout_seconds must be positive", i)
		}
	}
	return cfg, nil
}

// MatchRule returns the first mutation rule whose glob matches
// relativePath (a repo-relative, slash-separated path), and true if one
// matched. Rules are tried in declared order.
func (c *RepoConfig) MatchRule(relativePath string) (MutationRule, bool) {
	for _, rule := range c.Mutation.Rules {
		ok, err := doublestar.Match(rule.Glob, relativePath)
		if err == nil && ok {
			return rule, true
		}
	}
	return MutationRule{}, false
}
