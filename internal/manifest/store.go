package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed run ledger.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open creates or connects to the ledger at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure manifest dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a running run and returns its row id.
func (s *Store) BeginRun(ctx context.Context, run RunStart) (int64, error) {
	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (run_id, started_at, status, input_dir, output_dir, upscale, compress, alpha)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			StatusRunning,
			run.InputDir,
			run.OutputDir,
			boolToInt(run.Upscale),
			boolToInt(run.Compress),
			boolToInt(run.Alpha),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, id int64, totals RunTotals) error {
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE runs SET finished_at = ?, status = ?, jobs_found = ?, jobs_succeeded = ?, jobs_failed = ?,
             assets_written = ?, assets_skipped = ?, upscale_fallbacks = ?, error = ?
             WHERE id = ?`,
			time.Now().UTC().Format(time.RFC3339Nano),
			totals.Status,
			totals.JobsFound,
			totals.JobsSucceeded,
			totals.JobsFailed,
			totals.AssetsWritten,
			totals.AssetsSkipped,
			totals.UpscaleFallbacks,
			nullableString(totals.Error),
			id,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordJob stores one job and its written assets in a single transaction.
func (s *Store) RecordJob(ctx context.Context, runID int64, job JobRecord, assets []AssetRecord) error {
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (run_id, seq, movie, title, status, reason, error, assets_written, assets_skipped, duration_ms)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, job.Seq, job.Movie, job.Title, job.Status,
			nullableString(job.Reason), nullableString(job.Error),
			job.AssetsWritten, job.AssetsSkipped, job.Duration.Milliseconds(),
		)
		if err != nil {
			return err
		}
		jobID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO assets (job_id, rel_path, kind, format, alpha, upscaled, fallback, fallback_reason, size, sha256)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, a := range assets {
			if _, err := stmt.ExecContext(ctx,
				jobID, a.RelPath, a.Kind, a.Format,
				boolToInt(a.Alpha), boolToInt(a.Upscaled), boolToInt(a.Fallback),
				nullableString(a.FallbackReason), a.Size, a.SHA256,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("record job %s: %w", job.Movie, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, started_at, finished_at, status, input_dir, output_dir,
                jobs_found, jobs_succeeded, jobs_failed, assets_written, assets_skipped, upscale_fallbacks, error
         FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			run         RunSummary
			startedRaw  string
			finishedRaw sql.NullString
			errRaw      sql.NullString
		)
		if err := rows.Scan(
			&run.ID, &run.RunID, &startedRaw, &finishedRaw, &run.Status, &run.InputDir, &run.OutputDir,
			&run.JobsFound, &run.JobsSucceeded, &run.JobsFailed, &run.AssetsWritten, &run.AssetsSkipped,
			&run.UpscaleFallbacks, &errRaw,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
			run.StartedAt = t
		}
		if finishedRaw.Valid {
			if t, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
				run.FinishedAt = &t
			}
		}
		run.Error = errRaw.String
		out = append(out, run)
	}
	return out, rows.Err()
}

// Jobs returns the job rows of one run in sequence order.
func (s *Store) Jobs(ctx context.Context, runID int64) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, movie, title, status, reason, error, assets_written, assets_skipped, duration_ms
         FROM jobs WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var (
			job        JobRecord
			reason     sql.NullString
			errText    sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&job.Seq, &job.Movie, &job.Title, &job.Status, &reason, &errText,
			&job.AssetsWritten, &job.AssetsSkipped, &durationMS); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Reason = reason.String
		job.Error = errText.String
		job.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, job)
	}
	return out, rows.Err()
}

// AssetCount returns how many assets were recorded for a run.
func (s *Store) AssetCount(ctx context.Context, runID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM assets a JOIN jobs j ON a.job_id = j.id WHERE j.run_id = ?`, runID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return count, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
