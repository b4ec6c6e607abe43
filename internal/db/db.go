package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/paths"
	_ "modernc.org/sqlite"
)

// DB represents the jirapulse database
type DB struct {
	*sql.DB
	path string
}

// DefaultDBPath returns the default database path.
// Uses XDG_DATA_HOME/jirapulse/jirapulse.db or ~/.local/share/jirapulse/jirapulse.db
func DefaultDBPath() string {
	return paths.DatabasePath()
}

// Open opens or creates the database
func Open(path string) (*DB, error) {
	if path == "" {
		path = DefaultDBPath()
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	connStr := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Init initializes the database schema
func (db *DB) Init() error {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == nil && version >= SchemaVersion {
		return nil
	}
	if err == nil && version == 2 {
		if _, err := db.Exec(snapshotDatesV3); err != nil {
			return fmt.Errorf("failed to migrate snapshots: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec(Views); err != nil {
		return fmt.Errorf("failed to create views: %w", err)
	}

	_, err = db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", SchemaVersion)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return nil
}

// Backup writes a consistent copy of the database to destPath with
// VACUUM INTO, so it is safe while other connections write. An existing
// file at destPath is replaced.
func (db *DB) Backup(destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", destPath, err)
	}
	if _, err := db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Restore replaces the database file with a backup. The DB is closed and
// must be reopened afterwards.
func (db *DB) Restore(srcPath string) error {
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(db.path)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}

	// Stale WAL files would be replayed over the restored data
	os.Remove(db.path + "-wal")
	os.Remove(db.path + "-shm")

	return nil
}

// Stats returns database statistics
type Stats struct {
	Path          string    `json:"path"`
	Size          int64     `json:"size_bytes"`
	Reports       int       `json:"reports"`
	Projects      int       `json:"projects"`
	SnapshotDays  int       `json:"snapshot_days"`
	Runs          int       `json:"runs"`
	FailedRuns    int       `json:"failed_runs"`
	LastReport    time.Time `json:"last_report"`
	SchemaVersion int       `json:"schema_version"`
}

// GetStats returns database statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{Path: db.path}

	if info, err := os.Stat(db.path); err == nil {
		stats.Size = info.Size()
	}

	db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&stats.Reports)
	db.QueryRow("SELECT COUNT(DISTINCT project_key) FROM status_snapshots").Scan(&stats.Projects)
	db.QueryRow("SELECT COUNT(DISTINCT snapshot_date) FROM status_snapshots").Scan(&stats.SnapshotDays)
	db.QueryRow("SELECT COUNT(*) FROM report_runs").Scan(&stats.Runs)
	db.QueryRow("SELECT COUNT(*) FROM report_runs WHERE status = ?", RunFailed).Scan(&stats.FailedRuns)
	db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&stats.SchemaVersion)

	var last sql.NullString
	db.QueryRow("SELECT MAX(created_at) FROM reports").Scan(&last)
	if t, ok := parseTime(last); ok {
		stats.LastReport = t
	}

	return stats, nil
}

// ExportData is the JSON export format
type ExportData struct {
	ExportedAt    time.Time           `json:"exported_at"`
	SchemaVersion int                 `json:"schema_version"`
	Reports       []artifact.Artifact `json:"reports"`
	Snapshots     []StatusSnapshot    `json:"snapshots"`
}

// Export exports report metadata and snapshots to JSON
func (db *DB) Export(w io.Writer) error {
	ctx := context.Background()
	data := ExportData{
		ExportedAt:    time.Now().UTC(),
		SchemaVersion: SchemaVersion,
	}

	reports, err := db.ListReports(ctx, artifact.ListOptions{})
	if err != nil {
		return err
	}
	data.Reports = reports

	rows, err := db.Query(`SELECT project_key, snapshot_date, status, issue_count
		FROM status_snapshots ORDER BY project_key, snapshot_date, status`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var s StatusSnapshot
		if err := rows.Scan(&s.ProjectKey, &s.Date, &s.Status, &s.Count); err != nil {
			return err
		}
		data.Snapshots = append(data.Snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Import imports data from JSON
func (db *DB) Import(r io.Reader) error {
	var data ExportData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}

	return db.Transaction(func(tx *Tx) error {
		for i := range data.Reports {
			if err := tx.saveReport(context.Background(), &data.Reports[i]); err != nil {
				return fmt.Errorf("failed to import report: %w", err)
			}
		}

		for _, s := range data.Snapshots {
			_, err := tx.Exec(`INSERT OR REPLACE INTO status_snapshots
				(project_key, snapshot_date, status, issue_count) VALUES (?, ?, ?, ?)`,
				s.ProjectKey, s.Date, s.Status, s.Count)
			if err != nil {
				return fmt.Errorf("failed to import snapshot: %w", err)
			}
		}
		return nil
	})
}
