package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/kiracore/jirapulse/internal/metrics"
)

// SnapshotStore persists per-day status counts.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, projectKey string, date time.Time, counts map[string]int) error
}

// Snapshot is one day's status counts of the project.
type Snapshot struct {
	ProjectKey string         `json:"projectKey"`
	Date       time.Time      `json:"date"`
	Counts     map[string]int `json:"counts"`
}

// TakeSnapshot counts the kanban view's issues per status and stores the
// counts under today's date. A second snapshot on the same day replaces
// the first.
func (s *Service) TakeSnapshot(ctx context.Context, store SnapshotStore) (*Snapshot, error) {
	issues, err := s.jira.GetAll(ctx, s.KanbanQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to load issues: %w", err)
	}

	counts := make(map[string]int)
	for _, sc := range metrics.StatusDistribution(issues) {
		counts[sc.Status] = sc.Count
	}

	now := s.now().In(s.cfg.Location())
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if err := store.SaveSnapshot(ctx, s.cfg.Project.Key, day, counts); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.log.Info().Str("project", s.cfg.Project.Key).Int("statuses", len(counts)).Msg("snapshot saved")
	return &Snapshot{ProjectKey: s.cfg.Project.Key, Date: day, Counts: counts}, nil
}
