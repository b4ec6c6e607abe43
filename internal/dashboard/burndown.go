package dashboard

import (
	"context"
	"fmt"

	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/kiracore/jirapulse/internal/metrics"
)

// Burndown sources.
const (
	SourceNative   = "native"
	SourceEstimate = "estimate"
)

// BurndownResult is the burndown payload of one sprint.
type BurndownResult struct {
	SprintID int                     `json:"sprintId"`
	Source   string                  `json:"source"`
	Data     []metrics.BurndownPoint `json:"data"`
}

// Burndown returns the daily burndown of a sprint. The native change log
// is used whenever it yields a valid window; otherwise the line is
// estimated from the sprint's story point totals.
func (s *Service) Burndown(ctx context.Context, sprintID int) (*BurndownResult, error) {
	if sprintID <= 0 {
		return nil, fmt.Errorf("%w: sprint id %d", ErrInvalidInput, sprintID)
	}

	boardID := s.cfg.Jira.BoardID
	if boardID == 0 {
		b, err := s.jira.FindScrumBoard(ctx, s.cfg.Project.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to find scrum board: %w", err)
		}
		if b == nil {
			return nil, fmt.Errorf("%w: jira.board_id is not set", ErrNotConfigured)
		}
		boardID = b.ID
	}

	loc := s.cfg.Location()
	chart, err := s.jira.Burndown(ctx, boardID, sprintID)
	if err == nil {
		points, nerr := metrics.NativeBurndown(chart, loc)
		if nerr == nil {
			return &BurndownResult{SprintID: sprintID, Source: SourceNative, Data: points}, nil
		}
		err = nerr
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.log.Warn().Err(err).Int("sprint", sprintID).Msg("native burndown unavailable, estimating")

	return s.estimate(ctx, boardID, sprintID)
}

func (s *Service) estimate(ctx context.Context, boardID, sprintID int) (*BurndownResult, error) {
	sprints, err := s.jira.Sprints(ctx, boardID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}

	var sprint *jira.Sprint
	for i := range sprints {
		if sprints[i].ID == sprintID {
			sprint = &sprints[i]
			break
		}
	}
	if sprint == nil {
		return nil, fmt.Errorf("%w: sprint %d", ErrNotFound, sprintID)
	}

	field := s.storyPointsField(ctx)
	issues, err := s.jira.SprintIssues(ctx, sprintID, field)
	if err != nil {
		return nil, fmt.Errorf("failed to load sprint issues: %w", err)
	}

	now := s.now()
	start, end := now, now
	if sprint.StartDate != nil {
		start = sprint.StartDate.Time
	}
	if sprint.EndDate != nil {
		end = sprint.EndDate.Time
	}

	total := metrics.TotalPoints(issues, field)
	completed := metrics.Velocity(issues, field)
	points := metrics.EstimatedBurndown(total, completed, start, end, now, s.cfg.Location())
	return &BurndownResult{SprintID: sprintID, Source: SourceEstimate, Data: points}, nil
}
