package store

import (
	"database/sql"
	"fmt"
	"time"
)

// DaemonStatus is the daemon's coarse-grained run state.
type DaemonStatus string

const (
	StatusIdle       DaemonStatus = "idle"
	StatusProcessing DaemonStatus = "processing"
)

// DaemonState is the single row tracking what the daemon is doing right
// now.
type DaemonState struct {
	Status      DaemonStatus
	CurrentTask string
	LastActive  time.Time
}

// GetDaemonState reads the singleton daemon_state row.
func (s *Store) GetDaemonState() (*DaemonState, error) {
	var (
		status string
		task   sql.NullString
		last   time.Time
	)
	err := s.db.QueryRow(`SELECT status, current_task, last_active FROM daemon_state WHERE id = 1`).
		Scan(&status, &task, &last)
	if err != nil {
		return nil, fmt.Errorf("get daemon state: %w", err)
	}
	return &DaemonState{Status: DaemonStatus(status), CurrentTask: task.String, LastActive: last}, nil
}

// SetDaemonState upserts the daemon's status and current task, and bumps
// last_active to now.
func (s *Store) SetDaemonState(status DaemonStatus, currentTask string) error {
	_, err := s.db.Exec(
		`UPDATE daemon_state SET status = ?, current_task = ?, last_active = ? WHERE id = 1`,
		string(status), nullable(currentTask), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set daemon state: %w", err)
	}
	return nil
}
