package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/kiracore/jirapulse/internal/progress"
	"github.com/kiracore/jirapulse/internal/report"
	"github.com/spf13/cobra"
)

var (
	reportFrom   string
	reportTo     string
	reportUsers  []string
	reportOut    string
	reportNoSave bool
	reportQuiet  bool
)

var reportCmd = &cobra.Command{
	Use:   "report <planning|daily|weekly|time>",
	Short: "Generate a markdown report",
	Long: `Generate a report for the configured project.

Report types:
  planning - open work per person with suggested priorities
  daily    - yesterday's updates and worklogs per person
  weekly   - last week's completed work, lead time and logged time
  time     - logged time per person and issue for a date range

The report is written to stdout (or --out) and, unless --no-save is
given, stored with its metadata for 'jirapulse reports'.

Examples:
  jirapulse report weekly
  jirapulse report time --from 2024-01-01 --to 2024-01-31
  jirapulse report daily --user a@example.com --out daily.md`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"planning", "daily", "weekly", "time"},
	RunE:      runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "start date (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "end date (YYYY-MM-DD)")
	reportCmd.Flags().StringSliceVarP(&reportUsers, "user", "u", nil, "limit to these users (repeatable)")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to a file instead of stdout")
	reportCmd.Flags().BoolVar(&reportNoSave, "no-save", false, "do not store the report")
	reportCmd.Flags().BoolVarP(&reportQuiet, "quiet", "q", false, "hide the progress bar")
}

func runReport(cmd *cobra.Command, args []string) error {
	kind, err := report.ParseKind(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, !reportNoSave)
	if err != nil {
		return err
	}
	defer a.Close()

	filters, err := report.FilterInput{
		DateFrom: reportFrom,
		DateTo:   reportTo,
		Users:    reportUsers,
	}.Filters(a.cfg.Location())
	if err != nil {
		return err
	}

	var obs progress.Observer = progress.Nop()
	if !reportQuiet {
		obs = newProgressBar()
	}

	res, err := a.runner().Run(ctx, report.Request{
		Kind:    kind,
		Filters: filters,
		Owner:   a.cfg.Reports.Owner,
		Trigger: report.TriggerCLI,
	}, obs)
	if err != nil {
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("failed to generate %s report: %w", kind, err)
	}

	if reportOut != "" {
		if err := os.WriteFile(reportOut, []byte(res.Markdown), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		color.New(color.FgGreen).Fprintf(os.Stderr, "✓ Written to %s\n", reportOut)
	} else {
		fmt.Print(res.Markdown)
	}

	switch {
	case res.SaveErr != nil:
		color.New(color.FgYellow).Fprintf(os.Stderr, "⚠ Report not stored: %v\n", res.SaveErr)
	case res.Artifact != nil:
		color.New(color.FgGreen).Fprintf(os.Stderr, "✓ Stored as %s (%s)\n", res.Artifact.ID, res.StoragePath)
	}
	return nil
}

// progressBar draws updates as a single redrawn line on stderr.
type progressBar struct {
	width int
}

func newProgressBar() *progressBar {
	return &progressBar{width: 30}
}

func (p *progressBar) Report(percent int, message string) {
	filled := p.width * percent / 100
	bar := color.GreenString(strings.Repeat("█", filled)) + strings.Repeat("░", p.width-filled)
	fmt.Fprintf(os.Stderr, "\r\033[K%s %3d%% %s", bar, percent, message)
	if percent >= 100 {
		fmt.Fprintln(os.Stderr)
	}
}

var _ progress.Observer = (*progressBar)(nil)

// signalContext is the command context cancelled on interrupt.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}
