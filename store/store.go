// Package store is Noctum's durable record of repositories, per-file
// analyses, mutation results, diagrams, and daemon status, backed by an
// embedded SQLite database at <data_dir>/<name>.db. All operations surface
// errors to the caller as an ordinary failure; the Orchestrator downgrades
// a single failed row to a warning and continues with the next unit of
// work — one bad write must never halt a processing cycle.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store is a concurrent-safe handle to the embedded database. The
// underlying connection pool is capped small: SQLite serializes writers
// regardless, and a small pool keeps lock contention predictable. mu is a
// separate, in-process lock callers take around a check-then-act
// idempotency pair (an idempotency read followed by its conditional
// write) to close the race where two goroutines both see "no result yet"
// and both perform the write; it says nothing about the connection pool
// itself, which SQLite already serializes.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Lock acquires the idempotency mutex. Callers hold it across a
// check-then-act pair such as HasMutationResult+AppendMutationResult or
// LatestContentHash+AppendAnalysisResult.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the mutex acquired by Lock.
func (s *Store) Unlock() {
	s.mu.Unlock()
}

// Open creates or opens the database file <dataDir>/<name>.db, creating
// dataDir if necessary, then idempotently creates the schema and attempts
// best-effort additive migrations.
func Open(dataDir, name string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	path := filepath.Join(dataDir, name+".db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	s.runMigrations()

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the on-disk database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS repositories (
			id         TEXT PRIMARY KEY,
			path       TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			enabled    INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS analysis_results (
			id             TEXT PRIMARY KEY,
			repository_id  TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
			file_path      TEXT NOT NULL,
			analysis_type  TEXT NOT NULL,
			result         TEXT NOT NULL,
			severity       TEXT,
			content_hash   TEXT,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_results_lookup
			ON analysis_results(repository_id, file_path, analysis_type, created_at)`,
		`CREATE TABLE IF NOT EXISTS mutation_results (
			id                 TEXT PRIMARY KEY,
			repository_id      TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
			file_path          TEXT NOT NULL,
			description        TEXT NOT NULL,
			reasoning          TEXT,
			replacements_json  TEXT NOT NULL,
			test_outcome       TEXT NOT NULL,
			killing_test       TEXT,
			test_output        TEXT,
			execution_time_ms  INTEGER NOT NULL DEFAULT 0,
			content_hash       TEXT NOT NULL,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mutation_results_idempotency
			ON mutation_results(repository_id, file_path, content_hash)`,
		`CREATE TABLE IF NOT EXISTS diagrams (
			id             TEXT PRIMARY KEY,
			repository_id  TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
			diagram_type   TEXT NOT NULL,
			title          TEXT,
			description    TEXT,
			dot_content    TEXT NOT NULL,
			svg_content    TEXT,
			content_hash   TEXT,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_diagrams_lookup
			ON diagrams(repository_id, diagram_type, created_at)`,
		`CREATE TABLE IF NOT EXISTS daemon_state (
			id           INTEGER PRIMARY KEY CHECK (id = 1),
			status       TEXT NOT NULL DEFAULT 'idle',
			current_task TEXT,
			last_active  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`INSERT OR IGNORE INTO daemon_state (id, status) VALUES (1, 'idle')`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// pendingMigration is a single additive, nullable-column change applied to
// an existing database. Failure is swallowed: the column may already
// exist in a shape this code no longer recognizes, and that is fine.
type pendingMigration struct {
	table, column, def string
}

var migrations = []pendingMigration{
	{"repositories", "updated_at", "DATETIME"},
	{"mutation_results", "execution_time_ms", "INTEGER"},
}

func (s *Store) runMigrations() {
	for _, m := range migrations {
		if columnExists(s.db, m.table, m.column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.def)
		_, _ = s.db.Exec(query) // best-effort; duplicate-column errors are expected and ignored
	}
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, ctyp string
			notNull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctyp, &notNull, &dflt, &pk); err != nil {
			return false
		}
		if name == column {
			return true
		}
	}
	return false
}
