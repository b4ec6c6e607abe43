package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/kiracore/jirapulse/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for managing jirapulse configuration files.`,
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate configuration file",
	Long: `Validate the configuration file for errors and warnings.

Examples:
  jirapulse config validate
  jirapulse config validate .jirapulse.yaml
  jirapulse config validate --config myconfig.yaml`,
	RunE: runValidate,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after files, environment and flags. Secrets are masked.`,
	RunE:  runShowConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateCmd)
	configCmd.AddCommand(showCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := cfgFile
	if len(args) > 0 {
		configFile = args[0]
	}
	if configFile == "" {
		configFile = ".jirapulse.yaml"
	}

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("Validating: %s\n\n", configFile)
	result := cfg.Validate()

	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if len(result.Errors) > 0 {
		red.Printf("✗ %d error(s):\n", len(result.Errors))
		for _, e := range result.Errors {
			red.Printf("  • %s\n", e.Error())
		}
		fmt.Println()
	}

	if result.HasWarnings() {
		yellow.Printf("⚠ %d warning(s):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			yellow.Printf("  • %s\n", w.Error())
		}
		fmt.Println()
	}

	fmt.Printf("Configuration summary:\n")
	fmt.Printf("  Jira:         %s\n", cfg.Jira.URL)
	fmt.Printf("  Project:      %s\n", cfg.Project.Key)
	fmt.Printf("  Users:        %d\n", len(cfg.Project.ActiveUsers))
	fmt.Printf("  Storage:      %s\n", cfg.Storage.Driver)
	fmt.Printf("  Schedules:    %d\n", len(cfg.Schedule))
	fmt.Printf("  LLM advice:   %v\n", cfg.LLMEnabled())
	fmt.Println()

	if result.IsValid() {
		color.Green("✓ Configuration is valid")
		return nil
	}

	red.Println("✗ Configuration has errors")
	os.Exit(1)
	return nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Jira.Token = mask(cfg.Jira.Token)
	cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
	cfg.Storage.DSN = mask(cfg.Storage.DSN)

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
