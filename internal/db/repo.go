package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiracore/jirapulse/internal/artifact"
)

const (
	timeLayout = "2006-01-02 15:04:05.000000000"
	dateLayout = "2006-01-02"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(timeLayout, s.String, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseTimePtr(s sql.NullString) *time.Time {
	if t, ok := parseTime(s); ok {
		return &t
	}
	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// saveReport upserts by storage path; a replaced report keeps its id
func saveReport(ctx context.Context, q rowQuerier, a *artifact.Artifact) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	var id string
	err := q.QueryRowContext(ctx, `INSERT INTO reports
		(id, owner, type, title, storage_path, project_key, date_from, date_to, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(storage_path) DO UPDATE SET
		title = excluded.title, project_key = excluded.project_key,
		date_from = excluded.date_from, date_to = excluded.date_to,
		size_bytes = excluded.size_bytes, created_at = excluded.created_at,
		updated_at = CURRENT_TIMESTAMP
		RETURNING id`,
		a.ID.String(), a.Owner, a.Type, a.Title, a.StoragePath, nullString(a.ProjectKey),
		formatTimePtr(a.DateFrom), formatTimePtr(a.DateTo), a.Size, formatTime(a.CreatedAt)).Scan(&id)
	if err != nil {
		return err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid report id %q: %w", id, err)
	}
	a.ID = parsed
	return nil
}

// SaveReport inserts or replaces report metadata
func (db *DB) SaveReport(ctx context.Context, a *artifact.Artifact) error {
	return saveReport(ctx, db.DB, a)
}

const reportColumns = `id, owner, type, title, storage_path, COALESCE(project_key, ''),
	date_from, date_to, size_bytes, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*artifact.Artifact, error) {
	var a artifact.Artifact
	var id string
	var from, to, created sql.NullString
	if err := row.Scan(&id, &a.Owner, &a.Type, &a.Title, &a.StoragePath, &a.ProjectKey,
		&from, &to, &a.Size, &created); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid report id %q: %w", id, err)
	}
	a.ID = parsed
	a.DateFrom = parseTimePtr(from)
	a.DateTo = parseTimePtr(to)
	a.CreatedAt, _ = parseTime(created)
	return &a, nil
}

// ListReports returns report metadata, newest first
func (db *DB) ListReports(ctx context.Context, opts artifact.ListOptions) ([]artifact.Artifact, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE (? = '' OR owner = ?) AND (? = '' OR type = ?)
		ORDER BY created_at DESC LIMIT ?`,
		opts.Owner, opts.Owner, opts.Type, opts.Type, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []artifact.Artifact
	for rows.Next() {
		a, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetReport returns the metadata of one report
func (db *DB) GetReport(ctx context.Context, id uuid.UUID) (*artifact.Artifact, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id.String())
	a, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, artifact.ErrNotFound
	}
	return a, err
}

// DeleteReport removes report metadata and returns its storage path
func (db *DB) DeleteReport(ctx context.Context, id uuid.UUID) (string, error) {
	var p string
	err := db.QueryRowContext(ctx, "DELETE FROM reports WHERE id = ? RETURNING storage_path", id.String()).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return "", artifact.ErrNotFound
	}
	return p, err
}

// GetReportSummary returns per-type report counts
func (db *DB) GetReportSummary(ctx context.Context) ([]ReportSummary, error) {
	rows, err := db.QueryContext(ctx, "SELECT type, count, COALESCE(total_bytes, 0), last_created_at FROM report_summary ORDER BY type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var s ReportSummary
		var last sql.NullString
		if err := rows.Scan(&s.Type, &s.Count, &s.TotalBytes, &last); err != nil {
			return nil, err
		}
		s.LastCreatedAt, _ = parseTime(last)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveSnapshot saves the status counts of a project for a date
func (db *DB) SaveSnapshot(ctx context.Context, projectKey string, date time.Time, counts map[string]int) error {
	return db.Transaction(func(tx *Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO status_snapshots (project_key, snapshot_date, status, issue_count)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		day := date.Format(dateLayout)
		// Replace the whole day so emptied statuses disappear
		if _, err := tx.ExecContext(ctx, "DELETE FROM status_snapshots WHERE project_key = ? AND snapshot_date = ?", projectKey, day); err != nil {
			return err
		}
		for status, count := range counts {
			if _, err := stmt.ExecContext(ctx, projectKey, day, status, count); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSnapshots returns snapshots of a project taken on or after since
func (db *DB) GetSnapshots(ctx context.Context, projectKey string, since time.Time) ([]StatusSnapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT project_key, snapshot_date, status, issue_count
		FROM status_snapshots WHERE project_key = ? AND snapshot_date >= ?
		ORDER BY snapshot_date, status`, projectKey, since.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var data []StatusSnapshot
	for rows.Next() {
		var s StatusSnapshot
		if err := rows.Scan(&s.ProjectKey, &s.Date, &s.Status, &s.Count); err != nil {
			return nil, err
		}
		data = append(data, s)
	}
	return data, rows.Err()
}

// GetLastSnapshot returns the date of the last snapshot of a project
func (db *DB) GetLastSnapshot(ctx context.Context, projectKey string) (*time.Time, error) {
	var dateStr sql.NullString
	err := db.QueryRowContext(ctx, "SELECT MAX(snapshot_date) FROM status_snapshots WHERE project_key = ?", projectKey).Scan(&dateStr)
	if err != nil || !dateStr.Valid {
		return nil, err
	}
	t, err := time.Parse(dateLayout, dateStr.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RecordRunStart records the start of a generation and returns its id
func (db *DB) RecordRunStart(ctx context.Context, kind, trigger string) (int64, error) {
	result, err := db.ExecContext(ctx, `INSERT INTO report_runs (kind, triggered_by, started_at, status)
		VALUES (?, ?, ?, ?)`, kind, trigger, formatTime(time.Now()), RunRunning)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecordRunComplete marks a run finished; a non-empty errMsg marks it failed
func (db *DB) RecordRunComplete(ctx context.Context, runID int64, errMsg string) error {
	status := RunSuccess
	if errMsg != "" {
		status = RunFailed
	}
	_, err := db.ExecContext(ctx, `UPDATE report_runs SET completed_at = ?, status = ?, error_message = ?
		WHERE id = ?`, formatTime(time.Now()), status, nullString(errMsg), runID)
	return err
}

// ListRuns returns the most recent runs
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT id, kind, triggered_by, started_at, completed_at, status, COALESCE(error_message, '')
		FROM report_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, completed sql.NullString
		if err := rows.Scan(&r.ID, &r.Kind, &r.Trigger, &started, &completed, &r.Status, &r.ErrorMessage); err != nil {
			return nil, err
		}
		r.StartedAt, _ = parseTime(started)
		r.CompletedAt = parseTimePtr(completed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// helper to convert empty string to NULL
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Transaction wraps a function in a database transaction
func (db *DB) Transaction(fn func(tx *Tx) error) error {
	sqlTx, err := db.Begin()
	if err != nil {
		return err
	}

	tx := &Tx{Tx: sqlTx}
	if err := fn(tx); err != nil {
		sqlTx.Rollback()
		return err
	}

	return sqlTx.Commit()
}

// Tx wraps sql.Tx with helper methods
type Tx struct {
	*sql.Tx
}

func (tx *Tx) saveReport(ctx context.Context, a *artifact.Artifact) error {
	return saveReport(ctx, tx.Tx, a)
}

// Vacuum optimizes the database file
func (db *DB) Vacuum() error {
	_, err := db.Exec("VACUUM")
	return err
}

// Analyze updates query planner statistics
func (db *DB) Analyze() error {
	_, err := db.Exec("ANALYZE")
	return err
}

// Optimize runs both VACUUM and ANALYZE
func (db *DB) Optimize() error {
	if err := db.Vacuum(); err != nil {
		return err
	}
	return db.Analyze()
}
