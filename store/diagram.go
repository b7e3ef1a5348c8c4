package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Diagram is one generated architecture/data-flow/schema diagram. Rows are
// append-only; the most recent row per (repository, diagram_type) is
// authoritative.
type Diagram struct {
	ID           string
	RepositoryID string
	DiagramType  string
	Title        string
	Description  string
	DotContent   string
	SVGContent   string
	ContentHash  string // hash of the aggregated input, not of any one file
	CreatedAt    time.Time
}

// AppendDiagram inserts a new diagram row.
func (s *Store) AppendDiagram(d *Diagram) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO diagrams (id, repository_id, diagram_type, title, description, dot_content, svg_content, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RepositoryID, d.DiagramType, d.Title, d.Description, d.DotContent, nullable(d.SVGContent), nullable(d.ContentHash), d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append diagram: %w", err)
	}
	return nil
}

// LatestDiagramsForRepo returns, for every diagram_type under
// repositoryID, only its most recent row.
func (s *Store) LatestDiagramsForRepo(repositoryID string) ([]Diagram, error) {
	rows, err := s.db.Query(
		`SELECT d.id, d.repository_id, d.diagram_type, d.title, d.description, d.dot_content, d.svg_content, d.content_hash, d.created_at
		 FROM diagrams d
		 INNER JOIN (
			SELECT diagram_type, MAX(created_at) AS max_created_at
			FROM diagrams WHERE repository_id = ?
			GROUP BY diagram_type
		 ) latest ON d.diagram_type = latest.diagram_type AND d.created_at = latest.max_created_at
		 WHERE d.repository_id = ?
		 ORDER BY d.diagram_type ASC`,
		repositoryID, repositoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("latest diagrams for repo: %w", err)
	}
	defer rows.Close()

	var out []Diagram
	for rows.Next() {
		var (
			d          Diagram
			svg, hash  sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.RepositoryID, &d.DiagramType, &d.Title, &d.Description, &d.DotContent, &svg, &hash, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan diagram: %w", err)
		}
		d.SVGContent = svg.String
		d.ContentHash = hash.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// LatestDiagramContentHash returns the content_hash of the most recent
// diagram for (repositoryID, diagramType), or "" if none exists.
func (s *Store) LatestDiagramContentHash(repositoryID, diagramType string) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRow(
		`SELECT content_hash FROM diagrams WHERE repository_id = ? AND diagram_type = ? ORDER BY created_at DESC LIMIT 1`,
		repositoryID, diagramType,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest diagram content hash: %w", err)
	}
	return hash.String, nil
}
