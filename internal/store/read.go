package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/weft/internal/config"
	"github.com/roach88/weft/internal/opt"
)

// ErrRunNotFound is returned by ReadRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is a stored run.
type RunRecord struct {
	ID                string          `json:"id"`
	Seq               int64           `json:"seq"`
	Program           string          `json:"program"`
	Source            string          `json:"source,omitempty"`
	Settings          config.Settings `json:"settings"`
	InputFingerprint  string          `json:"input_fingerprint"`
	OutputFingerprint string          `json:"output_fingerprint,omitempty"`
	Iterations        int             `json:"iterations"`
	Converged         bool            `json:"converged"`
	Rollbacks         int             `json:"rollbacks"`
	Status            string          `json:"status"`
	Error             string          `json:"error,omitempty"`
}

const runColumns = `id, seq, program, source, settings, input_fingerprint, output_fingerprint,
	iterations, converged, rollbacks, status, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		r         RunRecord
		settings  string
		converged int
	)
	err := row.Scan(&r.ID, &r.Seq, &r.Program, &r.Source, &settings, &r.InputFingerprint,
		&r.OutputFingerprint, &r.Iterations, &converged, &r.Rollbacks, &r.Status, &r.Error)
	if err != nil {
		return r, err
	}
	r.Converged = converged != 0
	if r.Settings, err = unmarshalSettings(settings); err != nil {
		return r, fmt.Errorf("run %s: %w", r.ID, err)
	}
	return r, nil
}

// ListRuns returns all runs ordered by seq.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run. An unknown id wraps ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return r, fmt.Errorf("read run: %w", err)
	}
	return r, nil
}

// LatestRun returns the run with the highest seq.
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrRunNotFound
	}
	if err != nil {
		return r, fmt.Errorf("read latest run: %w", err)
	}
	return r, nil
}

// ReadEvents returns a run's events ordered by seq.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]opt.Event, error) {
	return s.readEvents(ctx, `
		SELECT iteration, pass, function, changed, rolled_back, detail, fingerprint
		FROM pass_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadPassEvents returns a run's events for one pass, ordered by seq.
func (s *Store) ReadPassEvents(ctx context.Context, runID, pass string) ([]opt.Event, error) {
	return s.readEvents(ctx, `
		SELECT iteration, pass, function, changed, rolled_back, detail, fingerprint
		FROM pass_events
		WHERE run_id = ? AND pass = ?
		ORDER BY seq ASC
	`, runID, pass)
}

func (s *Store) readEvents(ctx context.Context, query string, args ...any) ([]opt.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []opt.Event{}
	for rows.Next() {
		var (
			e                   opt.Event
			changed, rolledBack int
		)
		if err := rows.Scan(&e.Iteration, &e.Pass, &e.Function, &changed, &rolledBack, &e.Detail, &e.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Changed = changed != 0
		e.RolledBack = rolledBack != 0
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
