package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TestOutcome classifies how a mutation fared against the project's own
// test suite.
type TestOutcome string

const (
	OutcomeKilled       TestOutcome = "killed"
	OutcomeSurvived     TestOutcome = "survived"
	OutcomeTimeout      TestOutcome = "timeout"
	OutcomeCompileError TestOutcome = "compile_error"
)

// MutationResult records one applied-and-reverted mutation attempt.
type MutationResult struct {
	ID               string
	RepositoryID     string
	FilePath         string // original absolute path
	Description      string
	Reasoning        string
	ReplacementsJSON string // serialized []Replacement
	TestOutcome      TestOutcome
	KillingTest      string
	TestOutput       string // truncated
	ExecutionTimeMs  int64
	ContentHash      string // hash of the original file content at mutation time
	CreatedAt        time.Time
}

// MutationSummary aggregates outcome counts for a repository.
type MutationSummary struct {
	Total        int
	Killed       int
	Survived     int
	Timeout      int
	CompileError int
}

// Score is killed / (killed + survived), zero when that denominator is
// zero.
func (m MutationSummary) Score() float64 {
	denom := m.Killed + m.Survived
	if denom == 0 {
		return 0
	}
	return float64(m.Killed) / float64(denom)
}

// AppendMutationResult inserts a new mutation result row.
func (s *Store) AppendMutationResult(r *MutationResult) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO mutation_results
			(id, repository_id, file_path, description, reasoning, replacements_json,
			 test_outcome, killing_test, test_output, execution_time_ms, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RepositoryID, r.FilePath, r.Description, r.Reasoning, r.ReplacementsJSON,
		string(r.TestOutcome), nullable(r.KillingTest), r.TestOutput, r.ExecutionTimeMs, r.ContentHash, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append mutation result: %w", err)
	}
	return nil
}

// ListMutationResults returns every mutation result for a repository,
// most recent first.
func (s *Store) ListMutationResults(repositoryID string) ([]MutationResult, error) {
	rows, err := s.db.Query(
		`SELECT id, repository_id, file_path, description, reasoning, replacements_json,
			test_outcome, killing_test, test_output, execution_time_ms, content_hash, created_at
		 FROM mutation_results WHERE repository_id = ? ORDER BY created_at DESC`,
		repositoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list mutation results: %w", err)
	}
	defer rows.Close()

	var out []MutationResult
	for rows.Next() {
		var (
			r           MutationResult
			outcome     string
			killingTest sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RepositoryID, &r.FilePath, &r.Description, &r.Reasoning, &r.ReplacementsJSON,
			&outcome, &killingTest, &r.TestOutput, &r.ExecutionTimeMs, &r.ContentHash, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mutation result: %w", err)
		}
		r.TestOutcome = TestOutcome(outcome)
		r.KillingTest = killingTest.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// MutationSummaryForRepo aggregates outcome counts across all mutation
// results for a repository.
func (s *Store) MutationSummaryForRepo(repositoryID string) (MutationSummary, error) {
	rows, err := s.db.Query(
		`SELECT test_outcome, COUNT(*) FROM mutation_results WHERE repository_id = ? GROUP BY test_outcome`,
		repositoryID,
	)
	if err != nil {
		return MutationSummary{}, fmt.Errorf("mutation summary: %w", err)
	}
	defer rows.Close()

	var summary MutationSummary
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return MutationSummary{}, fmt.Errorf("scan mutation summary: %w", err)
		}
		summary.Total += count
		switch TestOutcome(outcome) {
		case OutcomeKilled:
			summary.Killed = count
		case OutcomeSurvived:
			summary.Survived = count
		case OutcomeTimeout:
			summary.Timeout = count
		case OutcomeCompileError:
			summary.CompileError = count
		}
	}
	return summary, rows.Err()
}

// HasMutationResult reports whether any row exists for (repositoryID,
// filePath, contentHash) — the idempotency key that marks a file's
// current content as already mutation-tested.
func (s *Store) HasMutationResult(repositoryID, filePath, contentHash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM mutation_results WHERE repository_id = ? AND file_path = ? AND content_hash = ?`,
		repositoryID, filePath, contentHash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("has mutation result: %w", err)
	}
	return count > 0, nil
}
