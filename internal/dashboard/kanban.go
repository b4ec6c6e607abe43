package dashboard

import (
	"context"
	"fmt"

	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/kiracore/jirapulse/internal/metrics"
)

// KanbanWindowDays bounds the issues the kanban view considers.
const KanbanWindowDays = 90

// KanbanStats is the kanban dashboard payload.
type KanbanStats struct {
	StatusDistribution []metrics.StatusCount       `json:"statusDistribution"`
	WeeklyThroughput   []metrics.WeeklyThroughput `json:"weeklyThroughput"`
	AvgLeadTime        int                         `json:"avgLeadTime"`
	LeadTime           metrics.TimeStats           `json:"leadTime"`
	WIPCount           int                         `json:"wipCount"`
	TotalIssues        int                         `json:"totalIssues"`
	ProjectKey         string                      `json:"projectKey"`
}

// KanbanQuery returns the JQL of the kanban view.
func (s *Service) KanbanQuery() string {
	return jira.NewQuery(
		jira.Project(s.cfg.Project.Key),
		jira.AssigneeIn(s.cfg.Project.ActiveUsers),
		jira.UpdatedWithin(KanbanWindowDays),
	).OrderBy("updated DESC").String()
}

// KanbanStats loads the team's recently updated issues and aggregates them.
func (s *Service) KanbanStats(ctx context.Context) (*KanbanStats, error) {
	issues, err := s.jira.GetAll(ctx, s.KanbanQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to load kanban issues: %w", err)
	}

	loc := s.cfg.Location()
	stats := &KanbanStats{
		StatusDistribution: metrics.StatusDistribution(issues),
		WeeklyThroughput:   metrics.Throughput(issues, s.now(), loc, metrics.ThroughputWeeks),
		AvgLeadTime:        metrics.LeadTimeDays(issues),
		LeadTime:           metrics.CalculateTimeStats(metrics.LeadTimes(issues)),
		WIPCount:           metrics.WIPCount(issues),
		TotalIssues:        len(issues),
		ProjectKey:         s.cfg.Project.Key,
	}

	s.log.Debug().Int("issues", len(issues)).Int("wip", stats.WIPCount).Msg("kanban stats computed")
	return stats, nil
}
