package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kiracore/jirapulse/internal/db"
	"github.com/kiracore/jirapulse/internal/paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dbPath     string
	backupPath string
	runsLimit  int
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long: `Manage the local SQLite database.

The database stores report metadata, daily status snapshots and the
history of report runs. A postgres store is managed with its own tools.

Examples:
  jirapulse db init                    # Initialize database
  jirapulse db status                  # Show database status
  jirapulse db backup --output b.db    # Backup database
  jirapulse db restore --input b.db    # Restore from backup
  jirapulse db export > data.json      # Export to JSON
  jirapulse db import < data.json      # Import from JSON
  jirapulse db runs                    # Show recent report runs`,
}

// resolveDBPath prefers --db, then storage.path, then the XDG default.
func resolveDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if p := viper.GetString("storage.path"); p != "" {
		return p
	}
	return db.DefaultDBPath()
}

func openDB() (*db.DB, error) {
	database, err := db.Open(resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database",
	Long:  `Creates the jirapulse database with the required schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Init(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		color.Green("✓ Database initialized at: %s", database.Path())
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status and statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		stats, err := database.GetStats()
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		bold.Println("DATABASE STATUS")
		fmt.Printf("  Path:           %s\n", truncateStr(stats.Path, 60))
		fmt.Printf("  Size:           %s\n", humanize.Bytes(uint64(stats.Size)))
		fmt.Printf("  Schema Version: %d\n", stats.SchemaVersion)
		fmt.Println()
		fmt.Printf("  Reports:        %s\n", humanize.Comma(int64(stats.Reports)))
		fmt.Printf("  Projects:       %d\n", stats.Projects)
		fmt.Printf("  Snapshot days:  %d\n", stats.SnapshotDays)
		fmt.Printf("  Runs:           %d", stats.Runs)
		if stats.FailedRuns > 0 {
			color.New(color.FgRed).Printf(" (%d failed)", stats.FailedRuns)
		}
		fmt.Println()
		lastReport := "Never"
		if !stats.LastReport.IsZero() {
			lastReport = fmt.Sprintf("%s (%s)", stats.LastReport.Local().Format("2006-01-02 15:04:05"), humanize.Time(stats.LastReport))
		}
		fmt.Printf("  Last report:    %s\n", lastReport)

		summary, err := database.GetReportSummary(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to summarize reports: %w", err)
		}
		if len(summary) > 0 {
			fmt.Println()
			bold.Println("REPORTS BY TYPE")
			for _, s := range summary {
				fmt.Printf("  %-10s %5d  %10s  last %s\n", s.Type, s.Count,
					humanize.Bytes(uint64(s.TotalBytes)), humanize.Time(s.LastCreatedAt))
			}
		}
		return nil
	},
}

var dbPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the database file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(resolveDBPath())
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Backup the database",
	Long: `Creates a backup copy of the database.

If no output path is specified, creates a timestamped backup in the
XDG data directory under backups/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		dest := backupPath
		if dest == "" {
			timestamp := time.Now().Format("20060102-150405")
			dest = filepath.Join(paths.BackupDir(), fmt.Sprintf("jirapulse-%s.db", timestamp))
		}

		if err := database.Backup(dest); err != nil {
			return fmt.Errorf("failed to backup database: %w", err)
		}

		info, err := os.Stat(dest)
		if err != nil {
			return fmt.Errorf("failed to stat backup: %w", err)
		}
		color.Green("✓ Database backed up to: %s (%s)", dest, humanize.Bytes(uint64(info.Size())))
		return nil
	},
}

var dbRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore database from backup",
	Long:  `Restores the database from a backup file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if backupPath == "" {
			return fmt.Errorf("backup path required: use --input")
		}
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			return fmt.Errorf("backup file not found: %s", backupPath)
		}

		database, err := openDB()
		if err != nil {
			return err
		}

		if err := database.Restore(backupPath); err != nil {
			return fmt.Errorf("failed to restore database: %w", err)
		}

		color.Green("✓ Database restored from: %s", backupPath)
		return nil
	},
}

var dbExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export database to JSON",
	Long: `Exports report metadata and snapshots to JSON.

Output goes to stdout. Redirect to a file:
  jirapulse db export > backup.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Export(os.Stdout); err != nil {
			return fmt.Errorf("failed to export database: %w", err)
		}
		return nil
	},
}

var dbImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import database from JSON",
	Long: `Imports data produced by 'jirapulse db export'.

Input comes from stdin:
  jirapulse db import < backup.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Init(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.Import(os.Stdin); err != nil {
			return fmt.Errorf("failed to import database: %w", err)
		}

		fmt.Fprintln(os.Stderr, color.GreenString("✓ Database imported successfully"))
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database (destroys all data)",
	Long:  `Removes and reinitializes the database. Stored report files are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveDBPath()

		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")

		database, err := db.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		if err := database.Init(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		color.Yellow("✓ Database reset at: %s", path)
		return nil
	},
}

var dbOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize database performance",
	Long: `Runs VACUUM and ANALYZE to optimize database performance.

VACUUM reclaims unused space and defragments the database file.
ANALYZE updates statistics used by the query planner.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		before, err := database.GetStats()
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Println("Optimizing database...")
		fmt.Println("  Running VACUUM...")
		if err := database.Vacuum(); err != nil {
			return fmt.Errorf("VACUUM failed: %w", err)
		}
		fmt.Println("  Running ANALYZE...")
		if err := database.Analyze(); err != nil {
			return fmt.Errorf("ANALYZE failed: %w", err)
		}

		after, err := database.GetStats()
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		if saved := before.Size - after.Size; saved > 0 {
			color.Green("✓ Optimization complete. Reclaimed %s", humanize.Bytes(uint64(saved)))
		} else {
			color.Green("✓ Optimization complete. Database was already optimized.")
		}
		fmt.Printf("  Size: %s\n", humanize.Bytes(uint64(after.Size)))
		return nil
	},
}

var dbRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent report runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		runs, err := database.ListRuns(ctx, runsLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet")
			return nil
		}

		for _, r := range runs {
			status := color.GreenString(r.Status)
			switch r.Status {
			case db.RunFailed:
				status = color.RedString(r.Status)
			case db.RunRunning:
				status = color.YellowString(r.Status)
			}

			took := "-"
			if r.CompletedAt != nil {
				took = r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Printf("%5d  %-10s %-9s %-8s %-10s %s\n", r.ID, r.Kind, r.Trigger, status, took, humanize.Time(r.StartedAt))
			if r.ErrorMessage != "" {
				fmt.Printf("       %s\n", truncateStr(r.ErrorMessage, 70))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbPathCmd)
	dbCmd.AddCommand(dbBackupCmd)
	dbCmd.AddCommand(dbRestoreCmd)
	dbCmd.AddCommand(dbExportCmd)
	dbCmd.AddCommand(dbImportCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbOptimizeCmd)
	dbCmd.AddCommand(dbRunsCmd)

	dbCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default storage.path or the XDG data dir)")
	dbBackupCmd.Flags().StringVar(&backupPath, "output", "", "backup output path")
	dbRestoreCmd.Flags().StringVar(&backupPath, "input", "", "backup input path")
	dbRunsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen+3:]
}
