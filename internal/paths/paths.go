// Package paths resolves where jirapulse keeps its files, following the
// XDG base directory layout.
package paths

import (
	"os"
	"path/filepath"
)

// AppName names the jirapulse subdirectories.
const AppName = "jirapulse"

func xdg(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(append(append([]string{home}, fallback...), AppName)...)
}

// DataDir is $XDG_DATA_HOME/jirapulse, or ~/.local/share/jirapulse.
func DataDir() string {
	return xdg("XDG_DATA_HOME", ".local", "share")
}

// ConfigDir is $XDG_CONFIG_HOME/jirapulse, or ~/.config/jirapulse.
func ConfigDir() string {
	return xdg("XDG_CONFIG_HOME", ".config")
}

// DatabasePath is the default sqlite file.
func DatabasePath() string {
	return filepath.Join(DataDir(), "jirapulse.db")
}

// BackupDir holds timestamped database backups.
func BackupDir() string {
	return filepath.Join(DataDir(), "backups")
}

// ReportsDir holds stored markdown reports.
func ReportsDir() string {
	return filepath.Join(DataDir(), "reports")
}

// ConfigFilePath is the user-wide config file.
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// EnsureConfigDir creates ConfigDir.
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}
