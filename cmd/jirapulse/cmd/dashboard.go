package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kiracore/jirapulse/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	bold   = color.New(color.Bold)
	header = color.New(color.Bold, color.FgCyan)
	dim    = color.New(color.FgHiBlack)
	warn   = color.New(color.FgYellow)
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show active, unassigned and in-review counters",
	Long: `Show the headline counters of the project with links to the
matching Jira searches.

Examples:
  jirapulse stats
  jirapulse stats --format json`,
	RunE: runStats,
}

var kanbanCmd = &cobra.Command{
	Use:   "kanban",
	Short: "Show kanban metrics",
	Long: `Show kanban metrics for the active users' issues updated in the last
90 days:

  - Status distribution
  - Weekly throughput (completed vs created)
  - Lead time (creation → resolution)
  - Work in progress`,
	RunE: runKanban,
}

var sprintsCmd = &cobra.Command{
	Use:   "sprints",
	Short: "Show sprint velocity",
	Long: `Show the active sprints and the last 10 closed sprints of the scrum
board with their completed story points.

The board is jira.board_id, or the project's first scrum board.

With --detail, show Jira's sprint report for one sprint instead: issues
completed, not completed and removed during the sprint.`,
	RunE: runSprints,
}

var burndownCmd = &cobra.Command{
	Use:   "burndown <sprint-id>",
	Short: "Show a sprint burndown",
	Long: `Show the daily remaining story points of a sprint against the ideal
line. Uses Jira's burndown chart, or an estimate from the sprint's
issues when the chart is unavailable.`,
	Args: cobra.ExactArgs(1),
	RunE: runBurndown,
}

func init() {
	for _, c := range []*cobra.Command{statsCmd, kanbanCmd, sprintsCmd, burndownCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json)")
	}
	sprintsCmd.Flags().IntVar(&sprintDetail, "detail", 0, "show the sprint report of this sprint id")
}

var sprintDetail int

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// explain adds the board hints of a dashboard error to the output.
func explain(err error) error {
	var nsb *dashboard.NoScrumBoardError
	if errors.As(err, &nsb) && len(nsb.AvailableBoards) > 0 {
		warn.Fprintln(os.Stderr, "Available boards:")
		for _, b := range nsb.AvailableBoards {
			fmt.Fprintf(os.Stderr, "  %6d  %-8s %s\n", b.ID, b.Type, b.Name)
		}
	}
	var wb *dashboard.WrongBoardError
	if errors.As(err, &wb) {
		warn.Fprintln(os.Stderr, wb.Hint())
	}
	return err
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	o, err := a.dash.Overview(ctx)
	if err != nil {
		return err
	}

	if format == "json" {
		return printJSON(o)
	}

	header.Printf("\n  %s\n\n", o.ProjectKey)
	for _, row := range []struct {
		label string
		c     dashboard.Counter
	}{
		{"Active", o.Active},
		{"Unassigned", o.Unassigned},
		{"In review", o.Review},
	} {
		fmt.Printf("  %-12s ", row.label)
		bold.Printf("%6s", humanize.Comma(int64(row.c.Count)))
		dim.Printf("  %s\n", row.c.URL)
	}
	fmt.Println()
	return nil
}

func runKanban(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.dash.KanbanStats(ctx)
	if err != nil {
		return err
	}

	if format == "json" {
		return printJSON(s)
	}
	printKanbanStats(s)
	return nil
}

func printKanbanStats(s *dashboard.KanbanStats) {
	line := strings.Repeat("═", 62)
	header.Printf("\n%s\n  KANBAN METRICS: %s\n%s\n", line, s.ProjectKey, line)
	dim.Printf("Last %d days │ %d issues\n\n", dashboard.KanbanWindowDays, s.TotalIssues)

	bold.Println("STATUS DISTRIBUTION")
	for _, sc := range s.StatusDistribution {
		pct := 0.0
		if s.TotalIssues > 0 {
			pct = float64(sc.Count) * 100 / float64(s.TotalIssues)
		}
		fmt.Printf("  %-20s %4d %-20s %5.1f%%\n", truncateStr(sc.Status, 20), sc.Count,
			strings.Repeat("█", minInt(sc.Count, 20)), pct)
	}
	fmt.Printf("  %-20s %4d\n\n", "WIP", s.WIPCount)

	bold.Println("WEEKLY THROUGHPUT")
	for _, w := range s.WeeklyThroughput {
		fmt.Printf("  %-10s done %-3d new %-3d %s\n", w.Week, w.Completed, w.Created,
			color.GreenString(strings.Repeat("█", minInt(w.Completed, 30))))
	}
	fmt.Println()

	bold.Println("LEAD TIME (creation → resolution)")
	if s.LeadTime.Count == 0 {
		dim.Println("  No resolved issues in period")
	} else {
		fmt.Printf("  Average: %s  Median: %.1f  P85: %.1f  (n=%d)\n",
			ageColor(s.LeadTime.Average).Sprintf("%d days", s.AvgLeadTime), s.LeadTime.Median, s.LeadTime.P85, s.LeadTime.Count)
	}
	fmt.Println()
}

func ageColor(days float64) *color.Color {
	switch {
	case days > 14:
		return color.New(color.FgRed, color.Bold)
	case days > 7:
		return color.New(color.FgYellow, color.Bold)
	}
	return color.New(color.Bold)
}

func runSprints(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if sprintDetail != 0 {
		return printSprintDetail(ctx, a, sprintDetail)
	}

	s, err := a.dash.Sprints(ctx)
	if err != nil {
		return explain(err)
	}

	if format == "json" {
		return printJSON(s)
	}

	board := strconv.Itoa(s.BoardID)
	if s.Board != nil {
		board = fmt.Sprintf("%s (%d)", s.Board.Name, s.BoardID)
	}
	header.Printf("\n  SPRINTS: %s │ board %s\n\n", s.ProjectKey, board)

	if len(s.Sprints) == 0 {
		dim.Printf("  %s\n\n", s.Message)
		return nil
	}

	for _, sp := range s.Sprints {
		state := dim.Sprint(sp.State)
		if sp.State == "active" {
			state = color.GreenString(sp.State)
		}
		period := ""
		if sp.StartDate != nil && sp.EndDate != nil {
			period = sp.StartDate.Format("02.01") + " - " + sp.EndDate.Format("02.01.2006")
		}
		fmt.Printf("  %6d  %-28s %-8s %-20s %5.1f pts  %d/%d done\n",
			sp.ID, truncateStr(sp.Name, 28), state, period, sp.Velocity, sp.CompletedCount, sp.IssueCount)
	}
	fmt.Println()
	return nil
}

func printSprintDetail(ctx context.Context, a *app, id int) error {
	d, err := a.dash.SprintDetail(ctx, id)
	if err != nil {
		return explain(err)
	}

	if format == "json" {
		return printJSON(d)
	}

	header.Printf("\n  SPRINT %d: %s │ board %d\n\n", d.ID, d.Name, d.BoardID)
	fmt.Printf("  Completed:      %s\n", bold.Sprint(d.Completed))
	fmt.Printf("  Not completed:  %d\n", d.NotCompleted)
	fmt.Printf("  Removed:        %d\n", d.Punted)
	fmt.Printf("  Completion:     %.0f%%\n", d.Completion)
	if len(d.Carryover) > 0 {
		fmt.Printf("\n  %s %s\n", warn.Sprint("Carry over:"), strings.Join(d.Carryover, ", "))
	}
	fmt.Println()
	return nil
}

func runBurndown(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid sprint id %q", args[0])
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.dash.Burndown(ctx, id)
	if err != nil {
		return explain(err)
	}

	if format == "json" {
		return printJSON(b)
	}

	header.Printf("\n  BURNDOWN: sprint %d", b.SprintID)
	dim.Printf(" (%s)\n\n", b.Source)

	peak := 0.0
	for _, p := range b.Data {
		if p.Remaining > peak {
			peak = p.Remaining
		}
		if p.Ideal > peak {
			peak = p.Ideal
		}
	}
	for _, p := range b.Data {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("█", int(p.Remaining/peak*30))
		}
		c := color.New(color.FgGreen)
		if p.Remaining > p.Ideal {
			c = color.New(color.FgRed)
		}
		fmt.Printf("  %s %3d  %-30s %6.1f ", p.Date, p.Day, c.Sprint(bar), p.Remaining)
		dim.Printf("(ideal %.1f)\n", p.Ideal)
	}
	fmt.Println()
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
