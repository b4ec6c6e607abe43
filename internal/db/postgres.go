package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/rs/zerolog"
)

// PostgresSchema is the Postgres variant of the reports and snapshots tables
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS reports (
    id              UUID PRIMARY KEY,
    owner           TEXT NOT NULL,
    type            TEXT NOT NULL,
    title           TEXT NOT NULL,
    storage_path    TEXT NOT NULL UNIQUE,
    project_key     TEXT,
    date_from       TIMESTAMPTZ,
    date_to         TIMESTAMPTZ,
    size_bytes      BIGINT DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS status_snapshots (
    project_key     TEXT NOT NULL,
    snapshot_date   DATE NOT NULL,
    status          TEXT NOT NULL,
    issue_count     INTEGER NOT NULL,
    created_at      TIMESTAMPTZ DEFAULT now(),
    PRIMARY KEY (project_key, snapshot_date, status)
);

CREATE TABLE IF NOT EXISTS report_runs (
    id              BIGSERIAL PRIMARY KEY,
    kind            TEXT NOT NULL,
    triggered_by    TEXT NOT NULL,
    started_at      TIMESTAMPTZ NOT NULL,
    completed_at    TIMESTAMPTZ,
    status          TEXT NOT NULL,
    error_message   TEXT
);

CREATE INDEX IF NOT EXISTS idx_reports_owner_created ON reports(owner, created_at DESC);
`

// PGStore keeps report metadata and snapshots in Postgres
type PGStore struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// OpenPostgres connects to dsn and verifies the connection
func OpenPostgres(ctx context.Context, dsn string, log zerolog.Logger) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PGStore{Pool: pool, log: log}, nil
}

// Init creates the schema
func (s *PGStore) Init(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the pool
func (s *PGStore) Close() error {
	s.Pool.Close()
	return nil
}

// SaveReport inserts or replaces report metadata
func (s *PGStore) SaveReport(ctx context.Context, a *artifact.Artifact) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	const q = `
        INSERT INTO reports(id, owner, type, title, storage_path, project_key, date_from, date_to, size_bytes, created_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT(storage_path) DO UPDATE SET
            title=EXCLUDED.title,
            project_key=EXCLUDED.project_key,
            date_from=EXCLUDED.date_from,
            date_to=EXCLUDED.date_to,
            size_bytes=EXCLUDED.size_bytes,
            created_at=EXCLUDED.created_at,
            updated_at=now()
        RETURNING id`
	var id uuid.UUID
	err := s.Pool.QueryRow(ctx, q, a.ID, a.Owner, a.Type, a.Title, a.StoragePath, nullString(a.ProjectKey),
		a.DateFrom, a.DateTo, a.Size, a.CreatedAt).Scan(&id)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

const pgReportColumns = `id, owner, type, title, storage_path, COALESCE(project_key, ''),
	date_from, date_to, size_bytes, created_at`

func scanPGReport(row pgx.Row) (*artifact.Artifact, error) {
	var a artifact.Artifact
	if err := row.Scan(&a.ID, &a.Owner, &a.Type, &a.Title, &a.StoragePath, &a.ProjectKey,
		&a.DateFrom, &a.DateTo, &a.Size, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListReports returns report metadata, newest first
func (s *PGStore) ListReports(ctx context.Context, opts artifact.ListOptions) ([]artifact.Artifact, error) {
	var limit any
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+pgReportColumns+` FROM reports
		WHERE ($1 = '' OR owner = $1) AND ($2 = '' OR type = $2)
		ORDER BY created_at DESC LIMIT $3`, opts.Owner, opts.Type, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []artifact.Artifact
	for rows.Next() {
		a, err := scanPGReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetReport returns the metadata of one report
func (s *PGStore) GetReport(ctx context.Context, id uuid.UUID) (*artifact.Artifact, error) {
	a, err := scanPGReport(s.Pool.QueryRow(ctx, `SELECT `+pgReportColumns+` FROM reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, artifact.ErrNotFound
	}
	return a, err
}

// SaveSnapshot replaces the status counts of a project for a date
func (s *PGStore) SaveSnapshot(ctx context.Context, projectKey string, date time.Time, counts map[string]int) error {
	day := dateOnly(date)
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM status_snapshots WHERE project_key = $1 AND snapshot_date = $2`, projectKey, day)
	for status, count := range counts {
		batch.Queue(`INSERT INTO status_snapshots(project_key, snapshot_date, status, issue_count)
			VALUES($1,$2,$3,$4)`, projectKey, day, status, count)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Debug().Str("project", projectKey).Int("statuses", len(counts)).Msg("snapshot saved")
	return nil
}

// GetSnapshots returns snapshots of a project taken on or after since
func (s *PGStore) GetSnapshots(ctx context.Context, projectKey string, since time.Time) ([]StatusSnapshot, error) {
	rows, err := s.Pool.Query(ctx, `SELECT project_key, to_char(snapshot_date, 'YYYY-MM-DD'), status, issue_count
		FROM status_snapshots WHERE project_key = $1 AND snapshot_date >= $2
		ORDER BY snapshot_date, status`, projectKey, dateOnly(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var data []StatusSnapshot
	for rows.Next() {
		var snap StatusSnapshot
		if err := rows.Scan(&snap.ProjectKey, &snap.Date, &snap.Status, &snap.Count); err != nil {
			return nil, err
		}
		data = append(data, snap)
	}
	return data, rows.Err()
}

// GetLastSnapshot returns the date of the last snapshot of a project
func (s *PGStore) GetLastSnapshot(ctx context.Context, projectKey string) (*time.Time, error) {
	var last *time.Time
	err := s.Pool.QueryRow(ctx, `SELECT MAX(snapshot_date) FROM status_snapshots WHERE project_key = $1`, projectKey).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

// RecordRunStart records the start of a generation and returns its id
func (s *PGStore) RecordRunStart(ctx context.Context, kind, trigger string) (int64, error) {
	var id int64
	err := s.Pool.QueryRow(ctx, `INSERT INTO report_runs (kind, triggered_by, started_at, status)
		VALUES ($1, $2, now(), $3) RETURNING id`, kind, trigger, RunRunning).Scan(&id)
	return id, err
}

// RecordRunComplete marks a run finished; a non-empty errMsg marks it failed
func (s *PGStore) RecordRunComplete(ctx context.Context, runID int64, errMsg string) error {
	status := RunSuccess
	if errMsg != "" {
		status = RunFailed
	}
	_, err := s.Pool.Exec(ctx, `UPDATE report_runs SET completed_at = now(), status = $1, error_message = $2
		WHERE id = $3`, status, nullString(errMsg), runID)
	return err
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
