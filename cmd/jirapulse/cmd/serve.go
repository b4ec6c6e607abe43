package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiracore/jirapulse/internal/scheduler"
	"github.com/kiracore/jirapulse/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var noSchedule bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and run scheduled jobs",
	Long: `Start the HTTP API and the scheduler.

Endpoints:
  GET  /api/stats                 headline counters
  GET  /api/kanban-stats          kanban metrics
  GET  /api/sprints               sprint velocity
  GET  /api/sprints/:id/burndown  sprint burndown
  POST /api/reports/:type         generate a report (server-sent events)
  GET  /api/reports               stored reports
  GET  /api/reports/:id           one stored report with its markdown

The scheduler runs the 'schedule' entries and snapshot_cron of the
configuration. Stop with Ctrl+C.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default server.addr)")
	serveCmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "do not run scheduled jobs")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	runner := a.runner()

	if !noSchedule {
		sched, err := scheduler.New(a.cfg, runner, a.log, scheduler.WithSnapshots(a.dash, a.store))
		if err != nil {
			return err
		}
		for _, j := range sched.Jobs() {
			a.log.Info().Str("job", j.Name).Str("cron", j.Spec).Msg("scheduled")
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	srv := server.New(a.cfg, a.dash, runner, a.artifacts(), a.log)
	return srv.Run(ctx)
}
