package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnalysisResult is one LLM analysis output for a single file (or, for
// aggregates such as architecture_summary, for the repository as a
// whole). Rows are append-only; for any (repository, file_path,
// analysis_type) the most recent row is authoritative.
type AnalysisResult struct {
	ID            string
	RepositoryID  string
	FilePath      string // original absolute path, never a workspace path
	AnalysisType  string
	Result        string
	Severity      string // "info" | "warning" | "error" | ""
	ContentHash   string // hex SHA-256 of input content, or "" for aggregates
	CreatedAt     time.Time
}

// AppendAnalysisResult inserts a new analysis row.
func (s *Store) AppendAnalysisResult(r *AnalysisResult) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO analysis_results (id, repository_id, file_path, analysis_type, result, severity, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RepositoryID, r.FilePath, r.AnalysisType, r.Result, nullable(r.Severity), nullable(r.ContentHash), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append analysis result: %w", err)
	}
	return nil
}

// LatestAnalysisResult returns the most recent row for (repositoryID,
// filePath, analysisType).
func (s *Store) LatestAnalysisResult(repositoryID, filePath, analysisType string) (*AnalysisResult, error) {
	row := s.db.QueryRow(
		`SELECT id, repository_id, file_path, analysis_type, result, severity, content_hash, created_at
		 FROM analysis_results
		 WHERE repository_id = ? AND file_path = ? AND analysis_type = ?
		 ORDER BY created_at DESC LIMIT 1`,
		repositoryID, filePath, analysisType,
	)
	result, err := scanAnalysisResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return result, err
}

// LatestAnalysisResultsByType returns, for every file that has at least
// one row of analysisType under repositoryID, only its most recent row.
func (s *Store) LatestAnalysisResultsByType(repositoryID, analysisType string) ([]AnalysisResult, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.repository_id, a.file_path, a.analysis_type, a.result, a.severity, a.content_hash, a.created_at
		 FROM analysis_results a
		 INNER JOIN (
			SELECT file_path, MAX(created_at) AS max_created_at
			FROM analysis_results
			WHERE repository_id = ? AND analysis_type = ?
			GROUP BY file_path
		 ) latest ON a.file_path = latest.file_path AND a.created_at = latest.max_created_at
		 WHERE a.repository_id = ? AND a.analysis_type = ?
		 ORDER BY a.file_path ASC`,
		repositoryID, analysisType, repositoryID, analysisType,
	)
	if err != nil {
		return nil, fmt.Errorf("latest analysis results by type: %w", err)
	}
	defer rows.Close()
	return scanAnalysisResultRows(rows)
}

// LatestAnalysisResultsForRepo returns, for every (file_path,
// analysis_type) pair under repositoryID, only its most recent row.
func (s *Store) LatestAnalysisResultsForRepo(repositoryID string) ([]AnalysisResult, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.repository_id, a.file_path, a.analysis_type, a.result, a.severity, a.content_hash, a.created_at
		 FROM analysis_results a
		 INNER JOIN (
			SELECT file_path, analysis_type, MAX(created_at) AS max_created_at
			FROM analysis_results
			WHERE repository_id = ?
			GROUP BY file_path, analysis_type
		 ) latest ON a.file_path = latest.file_path AND a.analysis_type = latest.analysis_type
			AND a.created_at = latest.max_created_at
		 WHERE a.repository_id = ?
		 ORDER BY a.file_path ASC, a.analysis_type ASC`,
		repositoryID, repositoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("latest analysis results for repo: %w", err)
	}
	defer rows.Close()
	return scanAnalysisResultRows(rows)
}

// LatestContentHash returns the content_hash recorded on the most recent
// row for (repositoryID, filePath, analysisType), or "" if none exists.
// Used to decide whether a file's analysis is stale relative to its
// current on-disk content.
func (s *Store) LatestContentHash(repositoryID, filePath, analysisType string) (string, error) {
	result, err := s.LatestAnalysisResult(repositoryID, filePath, analysisType)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return result.ContentHash, nil
}

func scanAnalysisResult(row *sql.Row) (*AnalysisResult, error) {
	var (
		r        AnalysisResult
		severity sql.NullString
		hash     sql.NullString
	)
	if err := row.Scan(&r.ID, &r.RepositoryID, &r.FilePath, &r.AnalysisType, &r.Result, &severity, &hash, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Severity = severity.String
	r.ContentHash = hash.String
	return &r, nil
}

func scanAnalysisResultRows(rows *sql.Rows) ([]AnalysisResult, error) {
	var out []AnalysisResult
	for rows.Next() {
		var (
			r        AnalysisResult
			severity sql.NullString
			hash     sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RepositoryID, &r.FilePath, &r.AnalysisType, &r.Result, &severity, &hash, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis result: %w", err)
		}
		r.Severity = severity.String
		r.ContentHash = hash.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
