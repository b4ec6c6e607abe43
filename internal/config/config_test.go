package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Jira.URL = "https://example.atlassian.net"
	cfg.Jira.Email = "bot@example.com"
	cfg.Jira.Token = "token"
	cfg.Jira.BoardID = 7
	cfg.LLM.APIKey = "key"
	return cfg
}

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Project.Key != "DEV" {
		t.Errorf("Project.Key = %q, want %q", cfg.Project.Key, "DEV")
	}
	if len(cfg.Project.ActiveUsers) != 2 {
		t.Errorf("ActiveUsers has %d entries, want 2", len(cfg.Project.ActiveUsers))
	}
	if cfg.Project.StoryPointsField != "customfield_10016" {
		t.Errorf("StoryPointsField = %q, want customfield_10016", cfg.Project.StoryPointsField)
	}
	if cfg.Reports.Concurrency != DefaultConcurrency {
		t.Errorf("Reports.Concurrency = %d, want %d", cfg.Reports.Concurrency, DefaultConcurrency)
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(c *Config)
		wantValid  bool
		wantError  string
		wantWarned string
	}{
		{
			name:      "valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name:      "missing url",
			mutate:    func(c *Config) { c.Jira.URL = "" },
			wantError: "jira.url",
		},
		{
			name:      "relative url",
			mutate:    func(c *Config) { c.Jira.URL = "example.atlassian.net" },
			wantError: "jira.url",
		},
		{
			name:      "missing token",
			mutate:    func(c *Config) { c.Jira.Token = "" },
			wantError: "jira.token",
		},
		{
			name:      "missing project",
			mutate:    func(c *Config) { c.Project.Key = "" },
			wantError: "project.key",
		},
		{
			name:      "empty user",
			mutate:    func(c *Config) { c.Project.ActiveUsers = []string{"a@x.com", ""} },
			wantError: "project.active_users[1]",
		},
		{
			name:       "duplicate user",
			mutate:     func(c *Config) { c.Project.ActiveUsers = []string{"a@x.com", "A@x.com"} },
			wantValid:  true,
			wantWarned: "project.active_users[1]",
		},
		{
			name:       "no board",
			mutate:     func(c *Config) { c.Jira.BoardID = 0 },
			wantValid:  true,
			wantWarned: "jira.board_id",
		},
		{
			name:       "concurrency too high",
			mutate:     func(c *Config) { c.Reports.Concurrency = 50 },
			wantValid:  true,
			wantWarned: "reports.concurrency",
		},
		{
			name:      "bad location",
			mutate:    func(c *Config) { c.Reports.Location = "Mars/Olympus" },
			wantError: "reports.location",
		},
		{
			name:       "llm disabled",
			mutate:     func(c *Config) { c.LLM.APIKey = "" },
			wantValid:  true,
			wantWarned: "llm.api_key",
		},
		{
			name:      "unknown driver",
			mutate:    func(c *Config) { c.Storage.Driver = "mysql" },
			wantError: "storage.driver",
		},
		{
			name:      "postgres without dsn",
			mutate:    func(c *Config) { c.Storage.Driver = "postgres" },
			wantError: "storage.dsn",
		},
		{
			name:      "unknown server mode",
			mutate:    func(c *Config) { c.Server.Mode = "production" },
			wantError: "server.mode",
		},
		{
			name: "bad cron",
			mutate: func(c *Config) {
				c.Schedule = []ScheduleEntry{{Cron: "every day", Report: "daily"}}
			},
			wantError: "schedule[0].cron",
		},
		{
			name: "unknown report",
			mutate: func(c *Config) {
				c.Schedule = []ScheduleEntry{{Cron: "0 9 * * 1-5", Report: "monthly"}}
			},
			wantError: "schedule[0].report",
		},
		{
			name:      "bad snapshot cron",
			mutate:    func(c *Config) { c.SnapshotCron = "61 * * * *" },
			wantError: "snapshot_cron",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			result := cfg.Validate()

			if tc.wantValid && !result.IsValid() {
				t.Errorf("Validate() errors = %v, want none", result.Errors)
			}
			if tc.wantError != "" && !hasField(result.Errors, tc.wantError) {
				t.Errorf("Validate() errors = %v, want error on %q", result.Errors, tc.wantError)
			}
			if tc.wantWarned != "" && !hasField(result.Warnings, tc.wantWarned) {
				t.Errorf("Validate() warnings = %v, want warning on %q", result.Warnings, tc.wantWarned)
			}
		})
	}
}

func TestConcurrency(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultConcurrency},
		{-3, DefaultConcurrency},
		{1, 1},
		{8, 8},
		{10, 10},
		{11, MaxConcurrency},
	}

	for _, tc := range tests {
		cfg := Default()
		cfg.Reports.Concurrency = tc.in
		if got := cfg.Concurrency(); got != tc.want {
			t.Errorf("Concurrency() with %d = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	if cfg.Location() != time.Local {
		t.Errorf("Location() for %q should be time.Local", cfg.Reports.Location)
	}

	cfg.Reports.Location = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Errorf("Location() = %s, want UTC", cfg.Location())
	}

	cfg.Reports.Location = "Nowhere/Never"
	if cfg.Location() != time.Local {
		t.Error("Location() should fall back to time.Local for unknown zones")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	content := `
jira:
  url: https://acme.atlassian.net
  email: bot@acme.io
  token: secret
  board_id: 12
  timeout: 45s
project:
  key: OPS
  active_users:
    - a@acme.io
reports:
  concurrency: 8
schedule:
  - cron: "0 9 * * 1-5"
    report: daily
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	if cfg.Jira.URL != "https://acme.atlassian.net" {
		t.Errorf("Jira.URL = %q", cfg.Jira.URL)
	}
	if cfg.Jira.BoardID != 12 {
		t.Errorf("Jira.BoardID = %d, want 12", cfg.Jira.BoardID)
	}
	if cfg.Jira.Timeout != 45*time.Second {
		t.Errorf("Jira.Timeout = %v, want 45s", cfg.Jira.Timeout)
	}
	if cfg.Project.Key != "OPS" {
		t.Errorf("Project.Key = %q, want OPS", cfg.Project.Key)
	}
	if len(cfg.Project.ActiveUsers) != 1 || cfg.Project.ActiveUsers[0] != "a@acme.io" {
		t.Errorf("ActiveUsers = %v", cfg.Project.ActiveUsers)
	}
	// untouched keys keep their defaults
	if cfg.Project.StoryPointsField != "customfield_10016" {
		t.Errorf("StoryPointsField = %q, want default", cfg.Project.StoryPointsField)
	}
	if len(cfg.Schedule) != 1 || cfg.Schedule[0].Report != "daily" {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("LoadFromFile() should fail for a missing file")
	}
}

func TestLoadViper_Env(t *testing.T) {
	t.Setenv("JIRAPULSE_JIRA_URL", "https://env.atlassian.net")
	t.Setenv("JIRAPULSE_PROJECT_KEY", "ENV")
	t.Setenv("JIRAPULSE_REPORTS_CONCURRENCY", "9")

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("JIRAPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := LoadViper(v)
	if err != nil {
		t.Fatalf("LoadViper() error: %v", err)
	}

	if cfg.Jira.URL != "https://env.atlassian.net" {
		t.Errorf("Jira.URL = %q", cfg.Jira.URL)
	}
	if cfg.Project.Key != "ENV" {
		t.Errorf("Project.Key = %q, want ENV", cfg.Project.Key)
	}
	if cfg.Reports.Concurrency != 9 {
		t.Errorf("Reports.Concurrency = %d, want 9", cfg.Reports.Concurrency)
	}
	if cfg.Jira.Timeout != 30*time.Second {
		t.Errorf("Jira.Timeout = %v, want default 30s", cfg.Jira.Timeout)
	}
}
