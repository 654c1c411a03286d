package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chriserin/b2b/internal/runner"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// Scenario statuses as stored.
const (
	StatusPassed         = "passed"
	StatusFailed         = "failed"
	StatusExpectedFailed = "expected-failure"
)

// Run summarises one recorded suite run.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	Features  int
	Skipped   int
	Passed    int
	Failed    int
}

// ScenarioRecord is one stored scenario outcome.
type ScenarioRecord struct {
	Feature  string
	Title    string
	Status   string
	Kind     string
	Step     string
	Message  string
	Evidence string
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scenarioStatus(s runner.ScenarioResult) string {
	switch {
	case !s.Failed():
		return StatusPassed
	case s.ExpectFailure:
		return StatusExpectedFailed
	}
	return StatusFailed
}

// startedLayout is fixed width so started_at sorts as text.
const startedLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordSuite stores a suite result in one transaction.
func RecordSuite(ctx context.Context, db *sql.DB, suite runner.SuiteResult) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	runID := suite.RunID.String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, success) VALUES (?, ?, ?, ?)`,
		runID, suite.Started.UTC().Format(startedLayout), suite.Duration.Milliseconds(), boolInt(suite.Success),
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, f := range suite.Features {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO feature_results (run_id, title, file_path, duration_ms, success) VALUES (?, ?, ?, ?, ?)`,
			runID, f.Title, f.FilePath, f.Duration.Milliseconds(), boolInt(f.Success),
		)
		if err != nil {
			return fmt.Errorf("inserting feature %q: %w", f.Title, err)
		}
		featureID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading feature id: %w", err)
		}

		for _, s := range f.Scenarios {
			var kind, step, message, evidence string
			if e, failed := s.Err(); failed {
				kind, step, message, evidence = e.Kind.String(), e.Step, e.Message, e.Evidence
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO scenario_results (feature_result_id, title, status, error_kind, step, message, evidence, duration_ms)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				featureID, s.Title, scenarioStatus(s), kind, step, message, evidence, s.Duration.Milliseconds(),
			); err != nil {
				return fmt.Errorf("inserting scenario %q: %w", s.Title, err)
			}
		}
	}

	for _, f := range suite.Skipped {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_results (run_id, title, file_path, skip_reason, success) VALUES (?, ?, ?, ?, 1)`,
			runID, f.Title, f.FilePath, f.Reason.String(),
		); err != nil {
			return fmt.Errorf("inserting skipped feature %q: %w", f.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func RecentRuns(ctx context.Context, db *sql.DB, limit int) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.duration_ms, r.success,
			(SELECT COUNT(*) FROM feature_results f WHERE f.run_id = r.id AND f.skip_reason = ''),
			(SELECT COUNT(*) FROM feature_results f WHERE f.run_id = r.id AND f.skip_reason != ''),
			(SELECT COUNT(*) FROM scenario_results s JOIN feature_results f ON s.feature_result_id = f.id
				WHERE f.run_id = r.id AND s.status != ?),
			(SELECT COUNT(*) FROM scenario_results s JOIN feature_results f ON s.feature_result_id = f.id
				WHERE f.run_id = r.id AND s.status = ?)
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?`, StatusFailed, StatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			started    string
			durationMS int64
			success    int
		)
		if err := rows.Scan(&r.ID, &started, &durationMS, &success, &r.Features, &r.Skipped, &r.Passed, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("parsing run time %q: %w", started, err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.Success = success == 1
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Failures returns the unexpected scenario failures of a run in the order
// they were recorded.
func Failures(ctx context.Context, db *sql.DB, runID string) ([]ScenarioRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT f.title, s.title, s.status, s.error_kind, s.step, s.message, s.evidence
		FROM scenario_results s JOIN feature_results f ON s.feature_result_id = f.id
		WHERE f.run_id = ? AND s.status = ?
		ORDER BY s.id`, runID, StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var out []ScenarioRecord
	for rows.Next() {
		var s ScenarioRecord
		if err := rows.Scan(&s.Feature, &s.Title, &s.Status, &s.Kind, &s.Step, &s.Message, &s.Evidence); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindRun expands a run id prefix to the full id.
func FindRun(ctx context.Context, db *sql.DB, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	rows, err := db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scanning run: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
}
