package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup by id finds no matching row.
var ErrNotFound = errors.New("store: not found")

// Repository is a tracked source repository.
type Repository struct {
	ID        string
	Path      string
	Name      string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddRepository inserts a new repository. Path must be unique; a duplicate
// path fails with the driver's constraint error.
func (s *Store) AddRepository(path, name string, enabled bool) (*Repository, error) {
	repo := &Repository{
		ID:        uuid.NewString(),
		Path:      path,
		Name:      name,
		Enabled:   enabled,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO repositories (id, path, name, enabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		repo.ID, repo.Path, repo.Name, boolToInt(repo.Enabled), repo.CreatedAt, repo.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("add repository: %w", err)
	}
	return repo, nil
}

// GetRepository fetches a repository by id.
func (s *Store) GetRepository(id string) (*Repository, error) {
	row := s.db.QueryRow(
		`SELECT id, path, name, enabled, created_at, updated_at FROM repositories WHERE id = ?`, id,
	)
	return scanRepository(row)
}

// ListRepositories returns all repositories, optionally filtered to only
// enabled ones.
func (s *Store) ListRepositories(enabledOnly bool) ([]Repository, error) {
	query := `SELECT id, path, name, enabled, created_at, updated_at FROM repositories`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var out []Repository
	for rows.Next() {
		repo, err := scanRepositoryRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *repo)
	}
	return out, rows.Err()
}

// DeleteRepository removes a repository and, via ON DELETE CASCADE, all of
// its analysis, mutation, and diagram rows.
func (s *Store) DeleteRepository(id string) error {
	result, err := s.db.Exec(`DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row *sql.Row) (*Repository, error) {
	repo, err := scanRepositoryRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return repo, err
}

func scanRepositoryRows(row rowScanner) (*Repository, error) {
	var (
		repo    Repository
		enabled int
	)
	if err := row.Scan(&repo.ID, &repo.Path, &repo.Name, &enabled, &repo.CreatedAt, &repo.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan repository: %w", err)
	}
	repo.Enabled = enabled != 0
	return &repo, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
