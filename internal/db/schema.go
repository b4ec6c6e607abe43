package db

// Schema version for migrations
// Version 2: Added report_runs
// Version 3: snapshot_date stored as TEXT
const SchemaVersion = 3

// Schema contains the database schema
const Schema = `
-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- ═══════════════════════════════════════════════════════════════
-- REPORT ARTIFACTS
-- ═══════════════════════════════════════════════════════════════

CREATE TABLE IF NOT EXISTS reports (
    id              TEXT PRIMARY KEY,
    owner           TEXT NOT NULL,
    type            TEXT NOT NULL,
    title           TEXT NOT NULL,
    storage_path    TEXT NOT NULL UNIQUE,
    project_key     TEXT,
    date_from       TEXT,
    date_to         TEXT,
    size_bytes      INTEGER DEFAULT 0,
    created_at      TEXT NOT NULL,
    updated_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- ═══════════════════════════════════════════════════════════════
-- STATUS SNAPSHOTS
-- ═══════════════════════════════════════════════════════════════

CREATE TABLE IF NOT EXISTS status_snapshots (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    project_key     TEXT NOT NULL,
    snapshot_date   TEXT NOT NULL,
    status          TEXT NOT NULL,
    issue_count     INTEGER NOT NULL,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(project_key, snapshot_date, status)
);

-- ═══════════════════════════════════════════════════════════════
-- RUN HISTORY
-- ═══════════════════════════════════════════════════════════════

CREATE TABLE IF NOT EXISTS report_runs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    kind            TEXT NOT NULL,
    triggered_by    TEXT NOT NULL,
    started_at      TEXT NOT NULL,
    completed_at    TEXT,
    status          TEXT NOT NULL,
    error_message   TEXT,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- ═══════════════════════════════════════════════════════════════
-- INDEXES
-- ═══════════════════════════════════════════════════════════════

CREATE INDEX IF NOT EXISTS idx_reports_owner_created ON reports(owner, created_at);
CREATE INDEX IF NOT EXISTS idx_reports_type ON reports(type);
CREATE INDEX IF NOT EXISTS idx_snapshots_project_date ON status_snapshots(project_key, snapshot_date);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON report_runs(kind, started_at);
`

// Views contains the database views
const Views = `
CREATE VIEW IF NOT EXISTS report_summary AS
SELECT
    type,
    COUNT(*) as count,
    SUM(size_bytes) as total_bytes,
    MAX(created_at) as last_created_at
FROM reports
GROUP BY type;
`

// snapshotDatesV3 rebuilds status_snapshots of a version 2 database, whose
// DATE column the driver hands back as a timestamp instead of YYYY-MM-DD.
const snapshotDatesV3 = `
CREATE TABLE status_snapshots_v3 (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    project_key     TEXT NOT NULL,
    snapshot_date   TEXT NOT NULL,
    status          TEXT NOT NULL,
    issue_count     INTEGER NOT NULL,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(project_key, snapshot_date, status)
);
INSERT INTO status_snapshots_v3 (project_key, snapshot_date, status, issue_count, created_at)
    SELECT project_key, substr(snapshot_date, 1, 10), status, issue_count, created_at FROM status_snapshots;
DROP TABLE status_snapshots;
ALTER TABLE status_snapshots_v3 RENAME TO status_snapshots;
`
