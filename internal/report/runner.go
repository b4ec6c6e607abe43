package report

import (
	"context"
	"time"

	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/progress"
	"github.com/rs/zerolog"
)

// Run triggers.
const (
	TriggerCLI      = "cli"
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// RunRecorder keeps a history of generations.
type RunRecorder interface {
	RecordRunStart(ctx context.Context, kind, trigger string) (int64, error)
	RecordRunComplete(ctx context.Context, runID int64, errMsg string) error
}

// Request is one generation request.
type Request struct {
	Kind    Kind
	Filters Filters
	Owner   string
	Trigger string
}

// Result is a generated report and, when storing succeeded, its artifact.
type Result struct {
	Markdown    string
	StoragePath string
	Artifact    *artifact.Artifact
	SaveErr     error
}

// Runner generates a report, stores it as an artifact and records the run.
// Storage and history are optional; their failures never fail the run.
type Runner struct {
	gen       *Generator
	artifacts *artifact.Service
	runs      RunRecorder
	log       zerolog.Logger
}

// NewRunner creates a runner; artifacts and runs may be nil.
func NewRunner(gen *Generator, artifacts *artifact.Service, runs RunRecorder, log zerolog.Logger) *Runner {
	return &Runner{gen: gen, artifacts: artifacts, runs: runs, log: log}
}

// Run generates the requested report, forwarding progress to obs. A
// context cancelled during generation fails the run before anything is
// stored.
func (r *Runner) Run(ctx context.Context, req Request, obs progress.Observer) (*Result, error) {
	log := r.log.With().Str("report", string(req.Kind)).Str("trigger", req.Trigger).Logger()
	runID := r.start(ctx, req, log)

	md, err := r.gen.Generate(ctx, req.Kind, req.Filters, obs)
	if err != nil {
		r.complete(runID, err.Error(), log)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		r.complete(runID, err.Error(), log)
		return nil, err
	}

	now := r.gen.now()
	res := &Result{Markdown: md, StoragePath: artifact.StoragePath(req.Owner, string(req.Kind), now)}
	if r.artifacts != nil {
		a, err := r.artifacts.Save(ctx, artifact.Request{
			Owner:      req.Owner,
			Type:       string(req.Kind),
			Title:      req.Kind.Title(),
			ProjectKey: r.gen.project(req.Filters),
			DateFrom:   req.Filters.DateFrom,
			DateTo:     req.Filters.DateTo,
			Content:    md,
			CreatedAt:  now,
		})
		if err != nil {
			res.SaveErr = err
		} else {
			res.Artifact = a
			res.StoragePath = a.StoragePath
		}
	}

	r.complete(runID, "", log)
	return res, nil
}

func (r *Runner) start(ctx context.Context, req Request, log zerolog.Logger) int64 {
	if r.runs == nil {
		return 0
	}
	id, err := r.runs.RecordRunStart(ctx, string(req.Kind), req.Trigger)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record run start")
		return 0
	}
	return id
}

// complete uses a fresh context so a cancelled generation is still
// recorded as failed.
func (r *Runner) complete(runID int64, errMsg string, log zerolog.Logger) {
	if r.runs == nil || runID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.runs.RecordRunComplete(ctx, runID, errMsg); err != nil {
		log.Warn().Err(err).Int64("run", runID).Msg("failed to record run result")
	}
}
