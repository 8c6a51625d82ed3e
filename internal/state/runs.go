package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// RecordRun stores a finished scan and all of its unit outcomes in one
// transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, summary RunSummary) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:          generateID(),
		StartedAt:   summary.StartedAt.UTC(),
		CompletedAt: summary.CompletedAt.UTC(),
		ModelsDir:   summary.ModelsDir,
	}
	for _, r := range summary.Results {
		if r == nil {
			continue
		}
		run.UnitsTotal++
		if r.IsRollupUnit {
			run.Rollups++
		}
		run.CandidatesTotal += len(r.Candidates)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, completed_at, models_dir, units_total, rollups, candidates_total)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.CompletedAt), run.ModelsDir,
		run.UnitsTotal, run.Rollups, run.CandidatesTotal,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_units (run_id, position, unit_name, source_path, attempt, is_rollup, candidates, overall_confidence, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare unit insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	for _, r := range summary.Results {
		if r == nil {
			continue
		}
		notes, err := json.Marshal(nonNil(r.Notes))
		if err != nil {
			return nil, fmt.Errorf("failed to encode notes for %s: %w", r.UnitName, err)
		}
		_, err = stmt.ExecContext(ctx,
			run.ID, position, r.UnitName, r.SourcePath, r.Attempt.String(), r.IsRollupUnit,
			len(r.Candidates), r.OverallConfidence, string(notes),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert unit %s: %w", r.UnitName, err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Info("recorded run",
		slog.String("id", run.ID),
		slog.Int("units", run.UnitsTotal),
		slog.Int("rollups", run.Rollups),
		slog.Int("candidates", run.CandidatesTotal))
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, completed_at, models_dir, units_total, rollups, candidates_total
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, completed_at, models_dir, units_total, rollups, candidates_total
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRunUnits returns the unit outcomes of a run in their original order.
func (s *SQLiteStore) GetRunUnits(ctx context.Context, runID string) ([]*RunUnit, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, unit_name, source_path, attempt, is_rollup, candidates, overall_confidence, notes
		 FROM run_units WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run units: %w", err)
	}
	defer rows.Close()

	units := []*RunUnit{}
	for rows.Next() {
		u := &RunUnit{}
		var notes string
		if err := rows.Scan(&u.RunID, &u.UnitName, &u.SourcePath, &u.Attempt, &u.IsRollup,
			&u.Candidates, &u.OverallConfidence, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan run unit: %w", err)
		}
		if err := json.Unmarshal([]byte(notes), &u.Notes); err != nil {
			return nil, fmt.Errorf("failed to decode notes for %s: %w", u.UnitName, err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run units: %w", err)
	}
	return units, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var started, completed string
	if err := row.Scan(&run.ID, &started, &completed, &run.ModelsDir,
		&run.UnitsTotal, &run.Rollups, &run.CandidatesTotal); err != nil {
		return nil, err
	}
	var err error
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if run.CompletedAt, err = parseTime(completed); err != nil {
		return nil, err
	}
	return run, nil
}

func nonNil(notes []string) []string {
	if notes == nil {
		return []string{}
	}
	return notes
}
