package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/kiracore/jirapulse/internal/db"
	"github.com/spf13/cobra"
)

var (
	snapshotDays   int
	snapshotFormat string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Daily status snapshots (cumulative flow)",
	Long:  `Record the number of issues per status each day and chart the flow over time.`,
}

var snapshotTakeCmd = &cobra.Command{
	Use:   "take",
	Short: "Take a snapshot",
	Long:  `Count the kanban view's issues per status and save them for today. A second snapshot on the same day replaces the first.`,
	RunE:  runSnapshotTake,
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display cumulative flow",
	Long:  `Show the stored snapshots as an ASCII cumulative flow chart.`,
	RunE:  runSnapshotShow,
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export snapshots",
	Long:  `Export the stored snapshots to CSV or JSON.`,
	RunE:  runSnapshotExport,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotTakeCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotExportCmd)

	snapshotShowCmd.Flags().IntVar(&snapshotDays, "days", 30, "days of history")
	snapshotExportCmd.Flags().IntVar(&snapshotDays, "days", 30, "days of history")
	snapshotExportCmd.Flags().StringVarP(&snapshotFormat, "format", "f", "csv", "output format (csv|json)")
}

func runSnapshotTake(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.dash.TakeSnapshot(ctx, a.store)
	if err != nil {
		return err
	}

	color.Green("✓ %s: snapshot saved for %s (%d statuses)", snap.ProjectKey, snap.Date.Format("2006-01-02"), len(snap.Counts))
	return nil
}

func loadSnapshots(cmd *cobra.Command) (string, []db.StatusSnapshot, error) {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return "", nil, err
	}
	defer a.Close()

	since := time.Now().In(a.cfg.Location()).AddDate(0, 0, -snapshotDays)
	data, err := a.store.GetSnapshots(ctx, a.cfg.Project.Key, since)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	return a.cfg.Project.Key, data, nil
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	project, data, err := loadSnapshots(cmd)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		fmt.Println("No snapshots. Run 'jirapulse snapshot take' first.")
		return nil
	}

	flow := groupFlow(data)

	header.Printf("\n%s - Cumulative Flow (%d days)\n", project, snapshotDays)
	fmt.Println(strings.Repeat("─", 60))

	const chartWidth = 40
	for _, date := range flow.dates {
		counts := flow.byDate[date]
		total := 0
		for _, c := range counts {
			total += c
		}

		var bar strings.Builder
		for i, status := range flow.statuses {
			count := counts[status]
			if count == 0 {
				continue
			}
			width := count * chartWidth / flow.maxTotal
			if width == 0 {
				width = 1
			}
			bar.WriteString(strings.Repeat(statusChar(i), width))
		}

		fmt.Printf("%s │%-*s│ %d\n", date[5:], chartWidth, bar.String(), total)
	}

	fmt.Println(strings.Repeat("─", 60))
	fmt.Print("Legend: ")
	for i, s := range flow.statuses {
		fmt.Printf("%s=%s ", statusChar(i), s)
	}
	fmt.Println()
	return nil
}

// flow is snapshot rows pivoted per date.
type flow struct {
	dates    []string
	statuses []string
	byDate   map[string]map[string]int
	maxTotal int
}

// groupFlow pivots rows by date. Statuses are ordered by their peak
// count, largest first, so the dominant columns keep stable glyphs.
func groupFlow(data []db.StatusSnapshot) flow {
	f := flow{byDate: make(map[string]map[string]int)}
	peak := make(map[string]int)

	for _, d := range data {
		if f.byDate[d.Date] == nil {
			f.byDate[d.Date] = make(map[string]int)
			f.dates = append(f.dates, d.Date)
		}
		f.byDate[d.Date][d.Status] = d.Count
		if _, seen := peak[d.Status]; !seen {
			f.statuses = append(f.statuses, d.Status)
		}
		if d.Count > peak[d.Status] {
			peak[d.Status] = d.Count
		}
	}

	sort.Strings(f.dates)
	sort.SliceStable(f.statuses, func(i, j int) bool {
		if peak[f.statuses[i]] != peak[f.statuses[j]] {
			return peak[f.statuses[i]] > peak[f.statuses[j]]
		}
		return f.statuses[i] < f.statuses[j]
	})

	for _, counts := range f.byDate {
		total := 0
		for _, c := range counts {
			total += c
		}
		if total > f.maxTotal {
			f.maxTotal = total
		}
	}
	return f
}

var statusChars = []string{"█", "▓", "▒", "░", "▄", "●", "◆", "▲"}

func statusChar(i int) string {
	if i < len(statusChars) {
		return statusChars[i]
	}
	return "·"
}

func runSnapshotExport(cmd *cobra.Command, args []string) error {
	_, data, err := loadSnapshots(cmd)
	if err != nil {
		return err
	}

	switch snapshotFormat {
	case "json":
		if data == nil {
			data = []db.StatusSnapshot{}
		}
		return printJSON(data)
	case "csv":
		w := csv.NewWriter(os.Stdout)
		w.Write([]string{"project", "date", "status", "count"})
		for _, d := range data {
			w.Write([]string{d.ProjectKey, d.Date, d.Status, strconv.Itoa(d.Count)})
		}
		w.Flush()
		return w.Error()
	default:
		return fmt.Errorf("unknown format %q (csv|json)", snapshotFormat)
	}
}
