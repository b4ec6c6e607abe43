package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/progress"
	"github.com/kiracore/jirapulse/internal/report"
)

const defaultListLimit = 50

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) stats(c *gin.Context) {
	ov, err := s.dash.Overview(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activeCount":     ov.Active.Count,
		"activeUrl":       ov.Active.URL,
		"unassignedCount": ov.Unassigned.Count,
		"unassignedUrl":   ov.Unassigned.URL,
		"reviewCount":     ov.Review.Count,
		"reviewUrl":       ov.Review.URL,
		"projectKey":      ov.ProjectKey,
	})
}

func (s *Server) kanbanStats(c *gin.Context) {
	stats, err := s.dash.KanbanStats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) sprints(c *gin.Context) {
	res, err := s.dash.Sprints(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func sprintID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, fmt.Errorf("%w: sprint id %q", errInvalid, c.Param("id"))
	}
	return id, nil
}

func (s *Server) burndown(c *gin.Context) {
	id, err := sprintID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.dash.Burndown(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) sprintReport(c *gin.Context) {
	id, err := sprintID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.dash.SprintDetail(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) filters(c *gin.Context) (report.Filters, error) {
	var in report.FilterInput
	var err error
	if c.Request.ContentLength > 0 {
		err = c.ShouldBindJSON(&in)
	} else {
		err = c.ShouldBindQuery(&in)
	}
	if err != nil {
		return report.Filters{}, fmt.Errorf("%w: %v", errInvalid, err)
	}
	f, err := in.Filters(s.cfg.Location())
	if err != nil {
		return report.Filters{}, fmt.Errorf("%w: %v", errInvalid, err)
	}
	return f, nil
}

type outcome struct {
	res *report.Result
	err error
}

// generate streams progress as server-sent events. Every frame is a
// "data:" line holding JSON; the last one carries storagePath on success
// or error on failure. A client disconnect cancels the generation.
func (s *Server) generate(c *gin.Context) {
	kind, err := report.ParseKind(c.Param("type"))
	if err != nil {
		s.fail(c, err)
		return
	}
	f, err := s.filters(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	req := report.Request{Kind: kind, Filters: f, Owner: s.owner(c), Trigger: report.TriggerAPI}

	ch := progress.NewChannelContext(ctx, 8)
	done := make(chan outcome, 1)
	go func() {
		res, err := s.reports.Run(ctx, req, ch)
		ch.Close()
		done <- outcome{res: res, err: err}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for u := range ch.C {
		s.frame(c, u)
	}

	out := <-done
	if out.err != nil {
		cl := classify(out.err)
		s.frame(c, gin.H{"error": out.err.Error(), "kind": cl.Kind, "message": cl.Message})
		return
	}

	final := gin.H{
		"progress":    100,
		"message":     progress.DoneMessage,
		"storagePath": out.res.StoragePath,
	}
	if out.res.Artifact != nil {
		final["id"] = out.res.Artifact.ID.String()
	}
	s.frame(c, final)
}

func (s *Server) frame(c *gin.Context, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode event")
		return
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", b); err != nil {
		return
	}
	c.Writer.Flush()
}

func (s *Server) listReports(c *gin.Context) {
	if s.artifacts == nil {
		s.fail(c, artifact.ErrNotFound)
		return
	}
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.fail(c, fmt.Errorf("%w: limit %q", errInvalid, v))
			return
		}
		limit = n
	}

	list, err := s.artifacts.List(c.Request.Context(), artifact.ListOptions{
		Owner: s.owner(c),
		Type:  c.Query("type"),
		Limit: limit,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	if list == nil {
		list = []artifact.Artifact{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": list})
}

func (s *Server) getReport(c *gin.Context) {
	if s.artifacts == nil {
		s.fail(c, artifact.ErrNotFound)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.fail(c, fmt.Errorf("%w: report id %q", errInvalid, c.Param("id")))
		return
	}
	a, content, err := s.artifacts.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": a, "content": content})
}
