package dashboard

import (
	"context"
	"fmt"

	"github.com/kiracore/jirapulse/internal/fields"
	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/sourcegraph/conc/pool"
)

// Counter is a headline number with the issue navigator link behind it.
type Counter struct {
	Count int    `json:"count"`
	URL   string `json:"url"`
	JQL   string `json:"jql"`
}

// Overview holds the headline counters of the project.
type Overview struct {
	Active     Counter `json:"active"`
	Unassigned Counter `json:"unassigned"`
	Review     Counter `json:"review"`
	ProjectKey string  `json:"projectKey"`
}

// teamClause filters by the configured team. The id comes from the field
// catalog when it resolves, else from configuration. An empty string means
// no team filter.
func (s *Service) teamClause(ctx context.Context) string {
	value := s.cfg.Project.TeamValue
	if value == "" {
		return ""
	}
	id, ok := s.resolve(ctx, fields.Team)
	if !ok {
		id = s.cfg.Project.TeamFieldID
	}
	if id == "" {
		return ""
	}
	return jira.FieldEquals(id, value)
}

// OverviewQueries returns the JQL behind each counter.
func (s *Service) OverviewQueries(ctx context.Context) (active, unassigned, review string) {
	p := s.cfg.Project

	active = jira.NewQuery(
		jira.Project(p.Key),
		jira.AssigneeIn(p.ActiveUsers),
		jira.StatusNotIn(p.StatusExclusions),
	).String()

	// unassigned counts every status, backlog included
	uq := jira.NewQuery(jira.Project(p.Key), jira.Unassigned())
	if team := s.teamClause(ctx); team != "" {
		uq.And(team)
	}
	unassigned = uq.String()

	review = jira.NewQuery(jira.Project(p.Key), jira.StatusIn(p.ReviewStatuses)).String()
	return active, unassigned, review
}

// Overview counts the team's open issues, unassigned team issues and
// in-review issues concurrently.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	active, unassigned, review := s.OverviewQueries(ctx)
	out := &Overview{ProjectKey: s.cfg.Project.Key}

	targets := []struct {
		jql string
		dst *Counter
	}{
		{active, &out.Active},
		{unassigned, &out.Unassigned},
		{review, &out.Review},
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, t := range targets {
		t := t
		p.Go(func(ctx context.Context) error {
			n, err := s.jira.Count(ctx, t.jql)
			if err != nil {
				return fmt.Errorf("failed to count issues: %w", err)
			}
			*t.dst = Counter{Count: n, URL: s.jira.IssuesURL(t.jql), JQL: t.jql}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
