package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/weft/internal/config"
	"github.com/roach88/weft/internal/ic"
	"github.com/roach88/weft/internal/opt"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// RunInfo describes a run before it starts.
type RunInfo struct {
	Program          string
	Source           string
	Settings         config.Settings
	InputFingerprint uint64
}

// Run is an open journal entry. It implements opt.Journal.
type Run struct {
	store *Store
	id    string
	seq   int64
	clock *Clock
}

var _ opt.Journal = (*Run)(nil)

// ID returns the run ID.
func (r *Run) ID() string { return r.id }

// Seq returns the run's position among all runs.
func (r *Run) Seq() int64 { return r.seq }

// BeginRun inserts a running run.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (*Run, error) {
	settings, err := marshalSettings(info.Settings)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	defer tx.Rollback()

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM runs`).Scan(&last); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	r := &Run{store: s, id: s.ids.Generate(), seq: last + 1, clock: NewClockAt(0)}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, program, source, settings, input_fingerprint, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.id, r.seq, info.Program, info.Source, settings, ic.FormatFingerprint(info.InputFingerprint), StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return r, nil
}

// Record appends e to the run.
func (r *Run) Record(ctx context.Context, e opt.Event) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO pass_events
		(run_id, seq, iteration, pass, function, changed, rolled_back, detail, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.id,
		r.clock.Next(),
		e.Iteration,
		e.Pass,
		e.Function,
		boolToInt(e.Changed),
		boolToInt(e.RolledBack),
		e.Detail,
		e.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Finish marks the run finished with the optimizer's result.
func (r *Run) Finish(ctx context.Context, res opt.Result) error {
	_, err := r.store.db.ExecContext(ctx, `
		UPDATE runs
		SET output_fingerprint = ?, iterations = ?, converged = ?, rollbacks = ?, status = ?
		WHERE id = ?
	`,
		ic.FormatFingerprint(res.Fingerprint),
		res.Iterations,
		boolToInt(res.Converged),
		res.Rollbacks,
		StatusFinished,
		r.id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Fail marks the run failed.
func (r *Run) Fail(ctx context.Context, cause error) error {
	_, err := r.store.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ? WHERE id = ?
	`, StatusFailed, cause.Error(), r.id)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}

// marshalSettings stores settings as JSON. Struct fields encode in
// declaration order, so equal settings give equal text.
func marshalSettings(s config.Settings) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(data), nil
}

func unmarshalSettings(text string) (config.Settings, error) {
	var s config.Settings
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return s, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
