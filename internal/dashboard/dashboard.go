// Package dashboard computes the live dashboard views: kanban metrics,
// sprint velocity, sprint burndown and the headline counters.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiracore/jirapulse/internal/config"
	"github.com/kiracore/jirapulse/internal/fields"
	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/rs/zerolog"
)

var (
	// ErrNoScrumBoard is matched by *NoScrumBoardError.
	ErrNoScrumBoard = errors.New("no scrum board found")
	// ErrNotConfigured is returned when required configuration is missing.
	ErrNotConfigured = errors.New("not configured")
	// ErrInvalidInput is returned for malformed request parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested sprint does not exist.
	ErrNotFound = errors.New("not found")
)

// BoardRef identifies a board in error payloads.
type BoardRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func refOf(b jira.Board) BoardRef {
	return BoardRef{ID: b.ID, Name: b.Name, Type: b.Type}
}

// NoScrumBoardError lists the boards of a project without a scrum board.
type NoScrumBoardError struct {
	ProjectKey      string
	AvailableBoards []BoardRef
}

func (e *NoScrumBoardError) Error() string {
	return "Не найдена Scrum-доска для проекта " + e.ProjectKey
}

func (e *NoScrumBoardError) Unwrap() error {
	return ErrNoScrumBoard
}

// WrongBoardError reports a configured board without sprints while another
// scrum board exists.
type WrongBoardError struct {
	BoardID        int
	SuggestedBoard BoardRef
}

func (e *WrongBoardError) Error() string {
	return fmt.Sprintf("Доска %d не поддерживает спринты", e.BoardID)
}

// Hint tells the user how to fix the configuration.
func (e *WrongBoardError) Hint() string {
	return fmt.Sprintf("Укажите jira.board_id: %d в конфигурации", e.SuggestedBoard.ID)
}

// Jira is the part of the Jira client the dashboard reads.
type Jira interface {
	GetAll(ctx context.Context, jql string) ([]jira.Issue, error)
	Count(ctx context.Context, jql string) (int, error)
	Boards(ctx context.Context, projectKeyOrID string) ([]jira.Board, error)
	FindScrumBoard(ctx context.Context, projectKey string) (*jira.Board, error)
	Sprints(ctx context.Context, boardID int, state string) ([]jira.Sprint, error)
	SprintIssues(ctx context.Context, sprintID int, storyPointsField string) ([]jira.Issue, error)
	Burndown(ctx context.Context, boardID, sprintID int) (*jira.BurndownChart, error)
	SprintReport(ctx context.Context, boardID, sprintID int) (*jira.SprintReport, error)
	IssuesURL(jql string) string
}

// FieldResolver maps logical field names to custom field ids.
type FieldResolver interface {
	Initialize(ctx context.Context) error
	Resolve(logical string) (string, bool)
}

// Service computes dashboard views.
type Service struct {
	jira   Jira
	fields FieldResolver
	cfg    *config.Config
	now    func() time.Time
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithFieldResolver enables custom field lookup by name.
func WithFieldResolver(r FieldResolver) Option {
	return func(s *Service) {
		s.fields = r
	}
}

// New creates a Service.
func New(j Jira, cfg *config.Config, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		jira: j,
		cfg:  cfg,
		now:  time.Now,
		log:  log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) storyPointsField(ctx context.Context) string {
	if s.cfg.Project.StoryPointsField != "" {
		return s.cfg.Project.StoryPointsField
	}
	if id, ok := s.resolve(ctx, fields.StoryPoints); ok {
		return id
	}
	return ""
}

// resolve initializes the resolver on first use. A failed catalog fetch
// leaves the field unresolved.
func (s *Service) resolve(ctx context.Context, logical string) (string, bool) {
	if s.fields == nil {
		return "", false
	}
	if err := s.fields.Initialize(ctx); err != nil {
		return "", false
	}
	return s.fields.Resolve(logical)
}
