package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobplane/internal/store"
)

// StartRun inserts a new program_runs row in RunStatusRunning.
func (s *Store) StartRun(ctx context.Context, id string, startedAt time.Time) error {
	query := `INSERT INTO program_runs (id, started_at, status) VALUES ($1, $2, $3)`
	_, err := s.db.ExecContext(ctx, query, id, startedAt, store.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("postgres: failed to start run %s: %w", id, err)
	}
	return nil
}

// CompleteRun records the terminal status of a run.
func (s *Store) CompleteRun(ctx context.Context, id string, completedAt time.Time, status store.RunStatus, errMsg *string) error {
	query := `UPDATE program_runs SET completed_at = $2, status = $3, error = $4 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id, completedAt, status, errMsg)
	if err != nil {
		return fmt.Errorf("postgres: failed to complete run %s: %w", id, err)
	}
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*store.ProgramRun, error) {
	query := `SELECT id, started_at, completed_at, status, error FROM program_runs WHERE id = $1`

	var run store.ProgramRun
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.StartedAt, &run.CompletedAt, &run.Status, &run.Error,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("postgres: no run found for id %s: %w", id, err)
		}
		return nil, err
	}
	return &run, nil
}
