package cmd

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/report"
	"github.com/spf13/cobra"
)

var (
	reportsOwner string
	reportsType  string
	reportsLimit int
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse stored reports",
	Long: `List and print reports stored by 'jirapulse report', the scheduler
or the HTTP API.`,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	RunE:  runReportsList,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsShow,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)

	reportsListCmd.Flags().StringVar(&reportsOwner, "owner", "", "only reports of this owner")
	reportsListCmd.Flags().StringVarP(&reportsType, "type", "t", "", "only reports of this type")
	reportsListCmd.Flags().IntVarP(&reportsLimit, "limit", "n", 20, "maximum number of reports")
	reportsListCmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json)")
}

func runReportsList(cmd *cobra.Command, args []string) error {
	if reportsType != "" {
		if _, err := report.ParseKind(reportsType); err != nil {
			return err
		}
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.artifacts().List(ctx, artifact.ListOptions{
		Owner: reportsOwner,
		Type:  reportsType,
		Limit: reportsLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if format == "json" {
		if list == nil {
			list = []artifact.Artifact{}
		}
		return printJSON(list)
	}

	if len(list) == 0 {
		fmt.Println("No stored reports. Run 'jirapulse report <type>' first.")
		return nil
	}

	for _, r := range list {
		fmt.Printf("%s  %-9s %-8s %-10s %8s  ", r.ID, r.Type, r.ProjectKey, truncateStr(r.Owner, 10), humanize.Bytes(uint64(r.Size)))
		dim.Printf("%s\n", humanize.Time(r.CreatedAt))
	}
	return nil
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid report id %q", args[0])
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	r, content, err := a.artifacts().Get(ctx, id)
	if errors.Is(err, artifact.ErrNotFound) {
		return fmt.Errorf("report %s not found", id)
	}
	if err != nil {
		return err
	}

	dim.Printf("<!-- %s │ %s │ %s -->\n", r.Title, r.StoragePath, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Print(content)
	return nil
}
