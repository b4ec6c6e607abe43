package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/kiracore/jirapulse/internal/metrics"
	"github.com/sourcegraph/conc/pool"
)

// ClosedSprintLimit is the number of closed sprints listed.
const ClosedSprintLimit = 10

// SprintVelocity is a sprint with its completion figures.
type SprintVelocity struct {
	jira.Sprint
	Velocity       float64 `json:"velocity"`
	IssueCount     int     `json:"issueCount"`
	CompletedCount int     `json:"completedCount"`
}

// Sprints is the velocity dashboard payload.
type Sprints struct {
	Sprints    []SprintVelocity `json:"sprints"`
	BoardID    int              `json:"boardId"`
	Board      *jira.Board      `json:"boardInfo,omitempty"`
	ProjectKey string           `json:"projectKey"`
	Message    string           `json:"message,omitempty"`
}

// SprintDetail is the completion breakdown of one sprint from Jira's
// sprint report.
type SprintDetail struct {
	jira.Sprint
	BoardID      int      `json:"boardId"`
	Completed    int      `json:"completed"`
	NotCompleted int      `json:"notCompleted"`
	Punted       int      `json:"punted"`
	Completion   float64  `json:"completion"`
	Carryover    []string `json:"carryover"`
}

// board returns the configured board id, or the project's first scrum
// board.
func (s *Service) board(ctx context.Context) (int, *jira.Board, error) {
	if id := s.cfg.Jira.BoardID; id != 0 {
		return id, nil, nil
	}

	key := s.cfg.Project.Key
	b, err := s.jira.FindScrumBoard(ctx, key)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to find scrum board: %w", err)
	}
	if b != nil {
		s.log.Info().Str("board", b.Name).Int("id", b.ID).Msg("auto-detected scrum board")
		return b.ID, b, nil
	}

	all, err := s.jira.Boards(ctx, key)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list boards: %w", err)
	}
	nsb := &NoScrumBoardError{ProjectKey: key, AvailableBoards: []BoardRef{}}
	for _, b := range all {
		nsb.AvailableBoards = append(nsb.AvailableBoards, refOf(b))
	}
	return 0, nil, nsb
}

// Sprints lists the active sprints followed by the last closed ones, each
// with its velocity.
func (s *Service) Sprints(ctx context.Context) (*Sprints, error) {
	boardID, info, err := s.board(ctx)
	if err != nil {
		return nil, err
	}

	closed, err := s.jira.Sprints(ctx, boardID, jira.SprintClosed)
	if err != nil {
		return nil, err
	}
	active, err := s.jira.Sprints(ctx, boardID, jira.SprintActive)
	if err != nil {
		return nil, err
	}

	out := &Sprints{Sprints: []SprintVelocity{}, BoardID: boardID, Board: info, ProjectKey: s.cfg.Project.Key}

	if len(closed) == 0 && len(active) == 0 {
		scrum, err := s.jira.FindScrumBoard(ctx, s.cfg.Project.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to find scrum board: %w", err)
		}
		if scrum != nil && scrum.ID != boardID {
			return nil, &WrongBoardError{BoardID: boardID, SuggestedBoard: refOf(*scrum)}
		}
		out.Message = "Нет данных о спринтах"
		return out, nil
	}

	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].Finished().After(closed[j].Finished())
	})
	if len(closed) > ClosedSprintLimit {
		closed = closed[:ClosedSprintLimit]
	}
	all := append(append([]jira.Sprint{}, active...), closed...)

	velocities, err := s.velocities(ctx, all)
	if err != nil {
		return nil, err
	}
	out.Sprints = velocities
	return out, nil
}

type indexedVelocity struct {
	index int
	v     SprintVelocity
}

// velocities loads the issues of every sprint with bounded concurrency.
// A sprint whose issues cannot be loaded is listed with zero velocity.
func (s *Service) velocities(ctx context.Context, sprints []jira.Sprint) ([]SprintVelocity, error) {
	field := s.storyPointsField(ctx)

	p := pool.NewWithResults[indexedVelocity]().
		WithContext(ctx).
		WithMaxGoroutines(s.cfg.Concurrency())

	for i, sp := range sprints {
		i, sp := i, sp
		p.Go(func(ctx context.Context) (indexedVelocity, error) {
			issues, err := s.jira.SprintIssues(ctx, sp.ID, field)
			if err != nil {
				if ctx.Err() != nil {
					return indexedVelocity{}, ctx.Err()
				}
				s.log.Warn().Err(err).Int("sprint", sp.ID).Msg("failed to load sprint issues")
				return indexedVelocity{index: i, v: SprintVelocity{Sprint: sp}}, nil
			}
			return indexedVelocity{index: i, v: SprintVelocity{
				Sprint:         sp,
				Velocity:       metrics.Velocity(issues, field),
				IssueCount:     len(issues),
				CompletedCount: metrics.CountCategory(issues, jira.CategoryDone),
			}}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	out := make([]SprintVelocity, len(sprints))
	for _, r := range results {
		out[r.index] = r.v
	}
	return out, nil
}

// SprintDetail summarizes the sprint report of a sprint. Completion is the
// percentage of issues still in the sprint at its end that were completed;
// punted issues do not count against it.
func (s *Service) SprintDetail(ctx context.Context, sprintID int) (*SprintDetail, error) {
	if sprintID <= 0 {
		return nil, fmt.Errorf("%w: sprint id %d", ErrInvalidInput, sprintID)
	}
	boardID, _, err := s.board(ctx)
	if err != nil {
		return nil, err
	}

	r, err := s.jira.SprintReport(ctx, boardID, sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sprint report: %w", err)
	}

	d := &SprintDetail{
		Sprint:       r.Sprint,
		BoardID:      boardID,
		Completed:    len(r.CompletedIssues),
		NotCompleted: len(r.IncompletedIssues),
		Punted:       len(r.PuntedIssues),
		Carryover:    make([]string, 0, len(r.IncompletedIssues)),
	}
	if d.ID == 0 {
		d.ID = sprintID
	}
	for _, is := range r.IncompletedIssues {
		d.Carryover = append(d.Carryover, is.Key)
	}
	if total := d.Completed + d.NotCompleted; total > 0 {
		d.Completion = float64(d.Completed) * 100 / float64(total)
	}
	return d, nil
}
