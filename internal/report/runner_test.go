package report

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/kiracore/jirapulse/internal/progress"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeta struct {
	saved []*artifact.Artifact
	err   error
}

func (f *fakeMeta) SaveReport(ctx context.Context, a *artifact.Artifact) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, a)
	return nil
}

func (f *fakeMeta) ListReports(ctx context.Context, opts artifact.ListOptions) ([]artifact.Artifact, error) {
	return nil, nil
}

func (f *fakeMeta) GetReport(ctx context.Context, id uuid.UUID) (*artifact.Artifact, error) {
	return nil, artifact.ErrNotFound
}

type fakeRuns struct {
	started  []string
	finished map[int64]string
}

func (f *fakeRuns) RecordRunStart(ctx context.Context, kind, trigger string) (int64, error) {
	f.started = append(f.started, kind+"/"+trigger)
	return int64(len(f.started)), nil
}

func (f *fakeRuns) RecordRunComplete(ctx context.Context, id int64, errMsg string) error {
	if f.finished == nil {
		f.finished = make(map[int64]string)
	}
	f.finished[id] = errMsg
	return nil
}

func planningSource() *fakeIssues {
	return &fakeIssues{respond: func(string) ([]jira.Issue, error) {
		return []jira.Issue{mkIssue("DEV-1", "Login", "In Progress", "indeterminate", "a@x.com")}, nil
	}}
}

func TestRunner_StoresArtifactAndRecordsRun(t *testing.T) {
	meta := &fakeMeta{}
	files := artifact.NewFileStorage(t.TempDir())
	runs := &fakeRuns{}
	r := NewRunner(newTestGenerator(planningSource(), &fakeWorklogs{}),
		artifact.NewService(meta, files, zerolog.Nop()), runs, zerolog.Nop())

	rec := &progress.Recorder{}
	res, err := r.Run(context.Background(), Request{Kind: Planning, Owner: "alice", Trigger: TriggerAPI}, rec)
	require.NoError(t, err)

	require.NotNil(t, res.Artifact)
	assert.NoError(t, res.SaveErr)
	assert.Equal(t, "DEV", res.Artifact.ProjectKey)
	assert.Contains(t, res.Artifact.Title, "Планирование - ")
	assert.Regexp(t, `^alice/planning/\d{4}-\d{2}-\d{2}\.md$`, res.StoragePath)

	content, err := files.Read(res.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, res.Markdown, string(content))

	assert.Equal(t, []string{"planning/api"}, runs.started)
	assert.Equal(t, map[int64]string{1: ""}, runs.finished)
	assertProgress(t, rec)
}

func TestRunner_SaveFailureStillDelivers(t *testing.T) {
	meta := &fakeMeta{err: errors.New("db locked")}
	r := NewRunner(newTestGenerator(planningSource(), &fakeWorklogs{}),
		artifact.NewService(meta, artifact.NewFileStorage(t.TempDir()), zerolog.Nop()), nil, zerolog.Nop())

	res, err := r.Run(context.Background(), Request{Kind: Planning, Owner: "alice"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Markdown)
	assert.Nil(t, res.Artifact)
	assert.Error(t, res.SaveErr)
	assert.Equal(t, "alice/planning/2024-01-08.md", res.StoragePath)
}

func TestRunner_GenerationFailureRecorded(t *testing.T) {
	issues := &fakeIssues{respond: func(string) ([]jira.Issue, error) { return nil, jira.ErrUnauthorized }}
	runs := &fakeRuns{}
	r := NewRunner(newTestGenerator(issues, &fakeWorklogs{}), nil, runs, zerolog.Nop())

	_, err := r.Run(context.Background(), Request{Kind: Weekly, Trigger: TriggerSchedule}, nil)
	require.ErrorIs(t, err, jira.ErrUnauthorized)
	require.Len(t, runs.finished, 1)
	assert.NotEmpty(t, runs.finished[1])
}

func TestRunner_ArtifactUsesGeneratorClock(t *testing.T) {
	meta := &fakeMeta{}
	r := NewRunner(newTestGenerator(planningSource(), &fakeWorklogs{}),
		artifact.NewService(meta, artifact.NewFileStorage(t.TempDir()), zerolog.Nop()), nil, zerolog.Nop())

	res, err := r.Run(context.Background(), Request{Kind: Planning, Owner: "alice"}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Artifact)
	assert.Equal(t, "alice/planning/2024-01-08.md", res.StoragePath)
	assert.True(t, res.Artifact.CreatedAt.Equal(fixedNow), "CreatedAt = %v", res.Artifact.CreatedAt)
	assert.Equal(t, "Планирование - 08.01.2024", res.Artifact.Title)
}

func TestRunner_CancelledAfterGenerationStoresNothing(t *testing.T) {
	meta := &fakeMeta{}
	dir := t.TempDir()
	runs := &fakeRuns{}
	r := NewRunner(newTestGenerator(planningSource(), &fakeWorklogs{}),
		artifact.NewService(meta, artifact.NewFileStorage(dir), zerolog.Nop()), runs, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := progress.Func(func(percent int, _ string) {
		if percent == 100 {
			cancel()
		}
	})

	res, err := r.Run(ctx, Request{Kind: Planning, Owner: "alice", Trigger: TriggerCLI}, obs)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Empty(t, meta.saved)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Equal(t, map[int64]string{1: context.Canceled.Error()}, runs.finished)
}
