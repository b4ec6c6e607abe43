// Package server exposes the dashboard and report generation over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/config"
	"github.com/kiracore/jirapulse/internal/dashboard"
	"github.com/kiracore/jirapulse/internal/progress"
	"github.com/kiracore/jirapulse/internal/report"
	"github.com/rs/zerolog"
)

// OwnerHeader names the requesting user.
const OwnerHeader = "X-User"

const shutdownTimeout = 15 * time.Second

// Dashboard computes the live views.
type Dashboard interface {
	Overview(ctx context.Context) (*dashboard.Overview, error)
	KanbanStats(ctx context.Context) (*dashboard.KanbanStats, error)
	Sprints(ctx context.Context) (*dashboard.Sprints, error)
	Burndown(ctx context.Context, sprintID int) (*dashboard.BurndownResult, error)
	SprintDetail(ctx context.Context, sprintID int) (*dashboard.SprintDetail, error)
}

// Reports generates and stores reports.
type Reports interface {
	Run(ctx context.Context, req report.Request, obs progress.Observer) (*report.Result, error)
}

// Artifacts reads stored reports.
type Artifacts interface {
	List(ctx context.Context, opts artifact.ListOptions) ([]artifact.Artifact, error)
	Get(ctx context.Context, id uuid.UUID) (*artifact.Artifact, string, error)
}

// Server is the HTTP API.
type Server struct {
	cfg       *config.Config
	dash      Dashboard
	reports   Reports
	artifacts Artifacts
	log       zerolog.Logger
	engine    *gin.Engine
}

// New builds the router. artifacts may be nil when no storage is
// configured; the listing endpoints then answer 404.
func New(cfg *config.Config, dash Dashboard, reports Reports, artifacts Artifacts, log zerolog.Logger) *Server {
	switch cfg.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	}
	s := &Server{
		cfg:       cfg,
		dash:      dash,
		reports:   reports,
		artifacts: artifacts,
		log:       log,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.healthz)

	api := r.Group("/api")
	api.GET("/stats", s.stats)
	api.GET("/kanban-stats", s.kanbanStats)
	api.GET("/sprints", s.sprints)
	api.GET("/sprints/:id/burndown", s.burndown)
	api.GET("/sprints/:id/report", s.sprintReport)
	api.POST("/reports/:type", s.generate)
	api.GET("/reports", s.listReports)
	api.GET("/reports/:id", s.getReport)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on cfg.Server.Addr until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http")
	}
}

func (s *Server) owner(c *gin.Context) string {
	if u := c.GetHeader(OwnerHeader); u != "" {
		return u
	}
	return s.cfg.Reports.Owner
}
