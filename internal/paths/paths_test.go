package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestXDGOverrides(t *testing.T) {
	data := t.TempDir()
	conf := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	t.Setenv("XDG_CONFIG_HOME", conf)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"data", DataDir(), filepath.Join(data, "jirapulse")},
		{"config", ConfigDir(), filepath.Join(conf, "jirapulse")},
		{"database", DatabasePath(), filepath.Join(data, "jirapulse", "jirapulse.db")},
		{"backups", BackupDir(), filepath.Join(data, "jirapulse", "backups")},
		{"reports", ReportsDir(), filepath.Join(data, "jirapulse", "reports")},
		{"config file", ConfigFilePath(), filepath.Join(conf, "jirapulse", "config.yaml")},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("%s = %q, want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestHomeFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")

	if got, want := DataDir(), filepath.Join(home, ".local", "share", "jirapulse"); got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
	if got, want := ConfigDir(), filepath.Join(home, ".config", "jirapulse"); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir() error: %v", err)
	}
	if info, err := os.Stat(ConfigDir()); err != nil || !info.IsDir() {
		t.Errorf("ConfigDir() not created: %v", err)
	}
}
