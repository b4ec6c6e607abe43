// Package scheduler runs report generations and status snapshots on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/kiracore/jirapulse/internal/config"
	"github.com/kiracore/jirapulse/internal/dashboard"
	"github.com/kiracore/jirapulse/internal/progress"
	"github.com/kiracore/jirapulse/internal/report"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultJobTimeout bounds a single scheduled run.
const DefaultJobTimeout = 10 * time.Minute

// ReportRunner generates and stores a report.
type ReportRunner interface {
	Run(ctx context.Context, req report.Request, obs progress.Observer) (*report.Result, error)
}

// Snapshotter records today's status counts.
type Snapshotter interface {
	TakeSnapshot(ctx context.Context, store dashboard.SnapshotStore) (*dashboard.Snapshot, error)
}

// Job describes one registered entry.
type Job struct {
	Name string
	Spec string
	ID   cron.EntryID
}

// Scheduler owns the cron instance.
type Scheduler struct {
	cron    *cron.Cron
	cfg     *config.Config
	runner  ReportRunner
	snap    Snapshotter
	store   dashboard.SnapshotStore
	timeout time.Duration
	log     zerolog.Logger
	jobs    []Job
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTimeout overrides DefaultJobTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSnapshots enables the snapshot job on cfg.SnapshotCron.
func WithSnapshots(snap Snapshotter, store dashboard.SnapshotStore) Option {
	return func(s *Scheduler) {
		s.snap = snap
		s.store = store
	}
}

// New registers every configured job. Nothing runs until Start.
func New(cfg *config.Config, runner ReportRunner, log zerolog.Logger, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		cfg:     cfg,
		runner:  runner,
		timeout: DefaultJobTimeout,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{log: log}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		cron.WithLogger(cl),
	)

	for _, e := range cfg.Schedule {
		kind, err := report.ParseKind(e.Report)
		if err != nil {
			return nil, err
		}
		if err := s.add("report:"+string(kind), e.Cron, s.reportJob(kind)); err != nil {
			return nil, err
		}
	}

	if s.snap != nil && s.store != nil && cfg.SnapshotCron != "" {
		if err := s.add("snapshot", cfg.SnapshotCron, s.snapshotJob); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, fn func()) error {
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("failed to schedule %s on %q: %w", name, spec, err)
	}
	s.jobs = append(s.jobs, Job{Name: name, Spec: spec, ID: id})
	return nil
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	return s.jobs
}

// Next returns the next activation of a job, zero before Start.
func (s *Scheduler) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stopped with jobs still running")
	}
}

func (s *Scheduler) reportJob(kind report.Kind) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		log := s.log.With().Str("job", "report").Str("report", string(kind)).Logger()
		log.Info().Msg("scheduled report started")

		res, err := s.runner.Run(ctx, report.Request{
			Kind:    kind,
			Owner:   s.cfg.Reports.Owner,
			Trigger: report.TriggerSchedule,
		}, progress.Nop())
		if err != nil {
			log.Error().Err(err).Msg("scheduled report failed")
			return
		}
		log.Info().Str("path", res.StoragePath).Msg("scheduled report finished")
	}
}

func (s *Scheduler) snapshotJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.snap.TakeSnapshot(ctx, s.store); err != nil {
		s.log.Error().Err(err).Str("job", "snapshot").Msg("scheduled snapshot failed")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
