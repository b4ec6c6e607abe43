package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

const (
	DefaultConcurrency = 5
	MaxConcurrency     = 10
)

// Config is the full jirapulse configuration
type Config struct {
	Jira         JiraConfig      `yaml:"jira" json:"jira" mapstructure:"jira"`
	Project      ProjectConfig   `yaml:"project" json:"project" mapstructure:"project"`
	Reports      ReportsConfig   `yaml:"reports" json:"reports" mapstructure:"reports"`
	LLM          LLMConfig       `yaml:"llm" json:"llm" mapstructure:"llm"`
	Storage      StorageConfig   `yaml:"storage" json:"storage" mapstructure:"storage"`
	Server       ServerConfig    `yaml:"server" json:"server" mapstructure:"server"`
	Schedule     []ScheduleEntry `yaml:"schedule" json:"schedule" mapstructure:"schedule"`
	SnapshotCron string          `yaml:"snapshot_cron" json:"snapshot_cron" mapstructure:"snapshot_cron"`
	Log          LogConfig       `yaml:"log" json:"log" mapstructure:"log"`
}

// JiraConfig holds tracker connection settings
type JiraConfig struct {
	URL     string        `yaml:"url" json:"url" mapstructure:"url"`
	Email   string        `yaml:"email" json:"email" mapstructure:"email"`
	Token   string        `yaml:"token" json:"-" mapstructure:"token"`
	BoardID int           `yaml:"board_id" json:"board_id" mapstructure:"board_id"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	Retries int           `yaml:"retries" json:"retries" mapstructure:"retries"`
}

// ProjectConfig describes the tracked project and team
type ProjectConfig struct {
	Key              string   `yaml:"key" json:"key" mapstructure:"key"`
	ActiveUsers      []string `yaml:"active_users" json:"active_users" mapstructure:"active_users"`
	StatusExclusions []string `yaml:"status_exclusions" json:"status_exclusions" mapstructure:"status_exclusions"`
	ReviewStatuses   []string `yaml:"review_statuses" json:"review_statuses" mapstructure:"review_statuses"`
	TeamFieldID      string   `yaml:"team_field_id" json:"team_field_id" mapstructure:"team_field_id"`
	TeamValue        string   `yaml:"team_value" json:"team_value" mapstructure:"team_value"`
	StoryPointsField string   `yaml:"story_points_field" json:"story_points_field" mapstructure:"story_points_field"`
}

// ReportsConfig controls report generation
type ReportsConfig struct {
	Concurrency int    `yaml:"concurrency" json:"concurrency" mapstructure:"concurrency"`
	Location    string `yaml:"location" json:"location" mapstructure:"location"`
	Owner       string `yaml:"owner" json:"owner" mapstructure:"owner"`
}

// LLMConfig configures the OpenAI-compatible advice endpoint
type LLMConfig struct {
	APIKey      string        `yaml:"api_key" json:"-" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" json:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" json:"model" mapstructure:"model"`
	Temperature float64       `yaml:"temperature" json:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// StorageConfig selects where report artifacts are kept
type StorageConfig struct {
	Driver     string `yaml:"driver" json:"driver" mapstructure:"driver"`
	Path       string `yaml:"path" json:"path" mapstructure:"path"`
	DSN        string `yaml:"dsn" json:"-" mapstructure:"dsn"`
	ReportsDir string `yaml:"reports_dir" json:"reports_dir" mapstructure:"reports_dir"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" mapstructure:"addr"`
	Mode string `yaml:"mode" json:"mode" mapstructure:"mode"`
}

// ScheduleEntry runs a report kind on a cron spec
type ScheduleEntry struct {
	Cron   string `yaml:"cron" json:"cron" mapstructure:"cron"`
	Report string `yaml:"report" json:"report" mapstructure:"report"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Jira: JiraConfig{
			Timeout: 30 * time.Second,
			Retries: 3,
		},
		Project: ProjectConfig{
			Key: "DEV",
			ActiveUsers: []string{
				"p.kuzyakin@actum.cx",
				"r.khamukov@actum.cx",
			},
			StatusExclusions: []string{
				"Done", "Closed", "Resolved", "Готово", "Отменено",
				"Backlog", "To Do", "К выполнению",
			},
			ReviewStatuses: []string{
				"Review", "Проверка", "Code Review", "In Review", "На ревью", "Ревью",
			},
			TeamFieldID:      "customfield_10001",
			TeamValue:        "c6bf7c58-d853-474d-bbe6-ebe40bf41eb4",
			StoryPointsField: "customfield_10016",
		},
		Reports: ReportsConfig{
			Concurrency: DefaultConcurrency,
			Location:    "Local",
			Owner:       "local",
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.7,
			MaxTokens:   2048,
			Timeout:     60 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default with v so environment variables
// can override keys that never appear in a config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("jira.url", d.Jira.URL)
	v.SetDefault("jira.email", d.Jira.Email)
	v.SetDefault("jira.token", d.Jira.Token)
	v.SetDefault("jira.board_id", d.Jira.BoardID)
	v.SetDefault("jira.timeout", d.Jira.Timeout)
	v.SetDefault("jira.retries", d.Jira.Retries)
	v.SetDefault("project.key", d.Project.Key)
	v.SetDefault("project.active_users", d.Project.ActiveUsers)
	v.SetDefault("project.status_exclusions", d.Project.StatusExclusions)
	v.SetDefault("project.review_statuses", d.Project.ReviewStatuses)
	v.SetDefault("project.team_field_id", d.Project.TeamFieldID)
	v.SetDefault("project.team_value", d.Project.TeamValue)
	v.SetDefault("project.story_points_field", d.Project.StoryPointsField)
	v.SetDefault("reports.concurrency", d.Reports.Concurrency)
	v.SetDefault("reports.location", d.Reports.Location)
	v.SetDefault("reports.owner", d.Reports.Owner)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("storage.reports_dir", d.Storage.ReportsDir)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("snapshot_cron", d.SnapshotCron)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load loads configuration from the global viper instance
func Load() (*Config, error) {
	return LoadViper(viper.GetViper())
}

// LoadViper unmarshals v over the defaults
func LoadViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a yaml file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.validateJira(result)
	c.validateProject(result)
	c.validateReports(result)
	c.validateLLM(result)
	c.validateStorage(result)
	c.validateServer(result)
	c.validateSchedule(result)

	return result
}

func (c *Config) validateJira(result *ValidationResult) {
	if c.Jira.URL == "" {
		result.AddError("jira.url", "jira url is required")
	} else if u, err := url.Parse(c.Jira.URL); err != nil || u.Scheme == "" || u.Host == "" {
		result.AddError("jira.url", fmt.Sprintf("invalid url %q", c.Jira.URL))
	}

	if c.Jira.Email == "" {
		result.AddError("jira.email", "jira email is required")
	}
	if c.Jira.Token == "" {
		result.AddError("jira.token", "jira api token is required")
	}

	if c.Jira.BoardID == 0 {
		result.AddWarning("jira.board_id", "no board configured, sprints will use the first scrum board of the project")
	}
	if c.Jira.Retries < 1 {
		result.AddWarning("jira.retries", "retries < 1, failed requests will not be retried")
	}
}

func (c *Config) validateProject(result *ValidationResult) {
	if c.Project.Key == "" {
		result.AddError("project.key", "project key is required")
	}

	if len(c.Project.ActiveUsers) == 0 {
		result.AddWarning("project.active_users", "no active users, reports will be empty")
	}

	seen := make(map[string]bool)
	for i, u := range c.Project.ActiveUsers {
		field := fmt.Sprintf("project.active_users[%d]", i)
		if u == "" {
			result.AddError(field, "empty user")
			continue
		}
		if seen[strings.ToLower(u)] {
			result.AddWarning(field, fmt.Sprintf("duplicate user %q", u))
		}
		seen[strings.ToLower(u)] = true
	}

	if c.Project.StoryPointsField == "" {
		result.AddWarning("project.story_points_field", "story points field not set, velocity will be 0")
	}
}

func (c *Config) validateReports(result *ValidationResult) {
	if c.Reports.Concurrency < 1 {
		result.AddWarning("reports.concurrency", fmt.Sprintf("concurrency < 1, will use default (%d)", DefaultConcurrency))
	} else if c.Reports.Concurrency > MaxConcurrency {
		result.AddWarning("reports.concurrency", fmt.Sprintf("concurrency > %d, will be capped", MaxConcurrency))
	}

	if _, err := loadLocation(c.Reports.Location); err != nil {
		result.AddError("reports.location", fmt.Sprintf("unknown location %q", c.Reports.Location))
	}
}

func (c *Config) validateLLM(result *ValidationResult) {
	if c.LLM.APIKey == "" {
		result.AddWarning("llm.api_key", "not set, reports will have no recommendations section")
		return
	}
	if c.LLM.Model == "" {
		result.AddError("llm.model", "model is required when api_key is set")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		result.AddWarning("llm.temperature", "temperature outside [0, 2]")
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	switch c.Storage.Driver {
	case "", "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			result.AddError("storage.dsn", "dsn is required for the postgres driver")
		}
	default:
		result.AddError("storage.driver", fmt.Sprintf("unknown driver %q (sqlite|postgres)", c.Storage.Driver))
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		result.AddError("server.mode", fmt.Sprintf("unknown mode %q (debug|release|test)", c.Server.Mode))
	}
}

var reportKinds = map[string]bool{"planning": true, "daily": true, "weekly": true, "time": true}

func (c *Config) validateSchedule(result *ValidationResult) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	for i, e := range c.Schedule {
		field := fmt.Sprintf("schedule[%d]", i)
		if _, err := parser.Parse(e.Cron); err != nil {
			result.AddError(field+".cron", fmt.Sprintf("invalid cron spec %q: %v", e.Cron, err))
		}
		if !reportKinds[e.Report] {
			result.AddError(field+".report", fmt.Sprintf("unknown report %q", e.Report))
		}
	}

	if c.SnapshotCron != "" {
		if _, err := parser.Parse(c.SnapshotCron); err != nil {
			result.AddError("snapshot_cron", fmt.Sprintf("invalid cron spec %q: %v", c.SnapshotCron, err))
		}
	}
}

// Concurrency returns the worklog fan-out limit clamped to [1, MaxConcurrency]
func (c *Config) Concurrency() int {
	n := c.Reports.Concurrency
	if n < 1 {
		return DefaultConcurrency
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}

// Location returns the time zone used for day and week bucketing
func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.Reports.Location)
	if err != nil {
		return time.Local
	}
	return loc
}

// LLMEnabled reports whether advice generation is configured
func (c *Config) LLMEnabled() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
