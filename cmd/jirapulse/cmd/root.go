package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kiracore/jirapulse/internal/advice"
	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/config"
	"github.com/kiracore/jirapulse/internal/dashboard"
	"github.com/kiracore/jirapulse/internal/db"
	"github.com/kiracore/jirapulse/internal/fields"
	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/kiracore/jirapulse/internal/logging"
	"github.com/kiracore/jirapulse/internal/paths"
	"github.com/kiracore/jirapulse/internal/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version info (set by ldflags)
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"

	// Global flags
	cfgFile string
	verbose bool

	// Shared command flags
	format string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "jirapulse",
	Short: "Jira dashboard and report generator",
	Long: `Jirapulse aggregates a Jira project into dashboard metrics and markdown reports.

It computes kanban and sprint metrics, generates planning, daily, weekly
and time reports, stores them, and can serve everything over HTTP.

Example:
  jirapulse init
  jirapulse stats
  jirapulse report weekly
  jirapulse serve`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default .jirapulse.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("project", "", "Jira project key")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("project.key", rootCmd.PersistentFlags().Lookup("project"))
}

// initConfig reads in config file
func initConfig() {
	config.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("JIRAPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search order:
		// 1. Current directory (.jirapulse.yaml) - project-specific config
		// 2. XDG config dir (config.yaml) - user default config
		viper.AddConfigPath(".")
		viper.AddConfigPath(paths.ConfigDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName(".jirapulse")
	}

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if cfgFile == "" {
		viper.SetConfigName("config")
		if err := viper.ReadInConfig(); err == nil && verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// app wires the clients every Jira-backed command needs.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	jira     *jira.Client
	resolver *fields.Resolver
	dash     *dashboard.Service
	store    db.Store
}

// newApp loads and validates the configuration and builds the clients.
// The metadata store is opened only when withStore is set.
func newApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose && cfg.Log.Level == "info" {
		cfg.Log.Level = "debug"
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	result := cfg.Validate()
	for _, w := range result.Warnings {
		log.Debug().Str("field", w.Field).Msg(w.Message)
	}
	if !result.IsValid() {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "config: %s\n", e.Error())
		}
		return nil, fmt.Errorf("invalid configuration, run 'jirapulse config validate'")
	}

	client := jira.NewClient(cfg.Jira.URL, cfg.Jira.Email, cfg.Jira.Token,
		jira.WithTimeout(cfg.Jira.Timeout),
		jira.WithRetries(cfg.Jira.Retries),
		jira.WithLogger(log),
	)
	resolver := fields.NewResolver(client, log)

	a := &app{
		cfg:      cfg,
		log:      log,
		jira:     client,
		resolver: resolver,
		dash:     dashboard.New(client, cfg, log, dashboard.WithFieldResolver(resolver)),
	}

	if withStore {
		store, err := db.OpenStore(ctx, cfg.Storage, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		a.store = store
	}
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// reportsDir is the directory stored report files live under.
func (a *app) reportsDir() string {
	if a.cfg.Storage.ReportsDir != "" {
		return a.cfg.Storage.ReportsDir
	}
	return paths.ReportsDir()
}

// artifacts returns the artifact service, or nil without a store.
func (a *app) artifacts() *artifact.Service {
	if a.store == nil {
		return nil
	}
	return artifact.NewService(a.store, artifact.NewFileStorage(a.reportsDir()), a.log)
}

// runner builds the report pipeline. Runs are recorded only with a store.
func (a *app) runner() *report.Runner {
	fetcher := jira.NewWorklogFetcher(a.jira, a.cfg.Concurrency(), a.log)
	gen := report.NewGenerator(a.jira, fetcher, a.cfg, a.log, report.WithAdvisor(advice.New(a.cfg.LLM, a.log)))

	var runs report.RunRecorder
	if a.store != nil {
		runs = a.store
	}
	return report.NewRunner(gen, a.artifacts(), runs, a.log)
}
