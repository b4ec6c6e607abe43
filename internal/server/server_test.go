package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/config"
	"github.com/kiracore/jirapulse/internal/dashboard"
	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/kiracore/jirapulse/internal/progress"
	"github.com/kiracore/jirapulse/internal/report"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct {
	overview *dashboard.Overview
	kanban   *dashboard.KanbanStats
	sprints  *dashboard.Sprints
	burndown *dashboard.BurndownResult
	detail   *dashboard.SprintDetail
	err      error
	sprintID int
}

func (f *fakeDashboard) Overview(ctx context.Context) (*dashboard.Overview, error) {
	return f.overview, f.err
}

func (f *fakeDashboard) KanbanStats(ctx context.Context) (*dashboard.KanbanStats, error) {
	return f.kanban, f.err
}

func (f *fakeDashboard) Sprints(ctx context.Context) (*dashboard.Sprints, error) {
	return f.sprints, f.err
}

func (f *fakeDashboard) Burndown(ctx context.Context, sprintID int) (*dashboard.BurndownResult, error) {
	f.sprintID = sprintID
	return f.burndown, f.err
}

func (f *fakeDashboard) SprintDetail(ctx context.Context, sprintID int) (*dashboard.SprintDetail, error) {
	f.sprintID = sprintID
	return f.detail, f.err
}

type fakeReports struct {
	req report.Request
	res *report.Result
	err error
}

func (f *fakeReports) Run(ctx context.Context, req report.Request, obs progress.Observer) (*report.Result, error) {
	f.req = req
	obs.Report(30, "Загрузка задач...")
	if f.err != nil {
		return nil, f.err
	}
	obs.Report(100, progress.DoneMessage)
	return f.res, nil
}

type fakeArtifacts struct {
	list    []artifact.Artifact
	opts    artifact.ListOptions
	content string
	err     error
}

func (f *fakeArtifacts) List(ctx context.Context, opts artifact.ListOptions) ([]artifact.Artifact, error) {
	f.opts = opts
	return f.list, f.err
}

func (f *fakeArtifacts) Get(ctx context.Context, id uuid.UUID) (*artifact.Artifact, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	for i := range f.list {
		if f.list[i].ID == id {
			return &f.list[i], f.content, nil
		}
	}
	return nil, "", artifact.ErrNotFound
}

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(d Dashboard, r Reports, a Artifacts) *Server {
	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.Reports.Location = "UTC"
	cfg.Reports.Owner = "local"
	return New(cfg, d, r, a, zerolog.Nop())
}

func do(s *Server, method, path string, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	w := do(testServer(&fakeDashboard{}, &fakeReports{}, nil), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestStats(t *testing.T) {
	d := &fakeDashboard{overview: &dashboard.Overview{
		Active:     dashboard.Counter{Count: 12, URL: "https://j/a"},
		Unassigned: dashboard.Counter{Count: 3, URL: "https://j/u"},
		Review:     dashboard.Counter{Count: 2, URL: "https://j/r"},
		ProjectKey: "DEV",
	}}
	w := do(testServer(d, &fakeReports{}, nil), http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, 12.0, body["activeCount"])
	assert.Equal(t, "https://j/u", body["unassignedUrl"])
	assert.Equal(t, 2.0, body["reviewCount"])
}

func TestKanbanStats(t *testing.T) {
	d := &fakeDashboard{kanban: &dashboard.KanbanStats{WIPCount: 4, TotalIssues: 9, ProjectKey: "DEV"}}
	w := do(testServer(d, &fakeReports{}, nil), http.MethodGet, "/api/kanban-stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, 4.0, body["wipCount"])
	assert.Equal(t, 9.0, body["totalIssues"])
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"auth", fmt.Errorf("search: %w", &jira.APIError{StatusCode: 401}), http.StatusUnauthorized, KindAuth},
		{"no scrum board", &dashboard.NoScrumBoardError{ProjectKey: "DEV", AvailableBoards: []dashboard.BoardRef{{ID: 2}}}, http.StatusNotFound, KindConfig},
		{"wrong board", &dashboard.WrongBoardError{BoardID: 5, SuggestedBoard: dashboard.BoardRef{ID: 7}}, http.StatusBadRequest, KindConfig},
		{"not configured", fmt.Errorf("%w: jira.board_id", dashboard.ErrNotConfigured), http.StatusInternalServerError, KindConfig},
		{"not found", fmt.Errorf("%w: sprint 9", dashboard.ErrNotFound), http.StatusNotFound, KindNotFound},
		{"transport", errors.New("dial tcp: connection refused"), http.StatusBadGateway, KindTransport},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(testServer(&fakeDashboard{err: tt.err}, &fakeReports{}, nil), http.MethodGet, "/api/sprints", "", nil)
			assert.Equal(t, tt.status, w.Code)

			body := decode(t, w)
			assert.Equal(t, tt.kind, body["kind"])
			assert.NotEmpty(t, body["message"])
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestErrorClassification_BoardDetails(t *testing.T) {
	err := &dashboard.WrongBoardError{BoardID: 5, SuggestedBoard: dashboard.BoardRef{ID: 7, Name: "DEV scrum"}}
	w := do(testServer(&fakeDashboard{err: err}, &fakeReports{}, nil), http.MethodGet, "/api/sprints", "", nil)

	body := decode(t, w)
	assert.Equal(t, err.Hint(), body["hint"])
	suggested, ok := body["suggestedBoard"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 7.0, suggested["id"])
}

func TestBurndown(t *testing.T) {
	d := &fakeDashboard{burndown: &dashboard.BurndownResult{SprintID: 42, Source: dashboard.SourceEstimate}}
	s := testServer(d, &fakeReports{}, nil)

	w := do(s, http.MethodGet, "/api/sprints/42/burndown", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 42, d.sprintID)
	assert.Equal(t, "estimate", decode(t, w)["source"])

	w = do(s, http.MethodGet, "/api/sprints/abc/burndown", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, KindInvalid, decode(t, w)["kind"])
}

func TestSprintReport(t *testing.T) {
	d := &fakeDashboard{detail: &dashboard.SprintDetail{BoardID: 7, Completed: 3, NotCompleted: 1, Punted: 2, Completion: 75}}
	s := testServer(d, &fakeReports{}, nil)

	w := do(s, http.MethodGet, "/api/sprints/12/report", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12, d.sprintID)
	body := decode(t, w)
	assert.Equal(t, 3.0, body["completed"])
	assert.Equal(t, 2.0, body["punted"])
	assert.Equal(t, 75.0, body["completion"])

	d.err = jira.ErrNotFound
	w = do(s, http.MethodGet, "/api/sprints/12/report", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, KindNotFound, decode(t, w)["kind"])
}

func frames(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, chunk := range strings.Split(strings.TrimSpace(body), "\n\n") {
		data, ok := strings.CutPrefix(chunk, "data: ")
		require.True(t, ok, "frame %q", chunk)
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(data), &m))
		out = append(out, m)
	}
	return out
}

func TestGenerate_Stream(t *testing.T) {
	id := uuid.New()
	reports := &fakeReports{res: &report.Result{
		Markdown:    "# report",
		StoragePath: "alice/weekly/2024-01-08.md",
		Artifact:    &artifact.Artifact{ID: id},
	}}
	s := testServer(&fakeDashboard{}, reports, nil)

	w := do(s, http.MethodPost, "/api/reports/weekly", `{"dateFrom":"2024-01-01","users":["a@x.com"]}`,
		map[string]string{OwnerHeader: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	fs := frames(t, w.Body.String())
	require.Len(t, fs, 3)
	assert.Equal(t, 30.0, fs[0]["progress"])
	assert.Equal(t, 100.0, fs[1]["progress"])
	assert.Equal(t, "alice/weekly/2024-01-08.md", fs[2]["storagePath"])
	assert.Equal(t, id.String(), fs[2]["id"])

	assert.Equal(t, report.Weekly, reports.req.Kind)
	assert.Equal(t, "alice", reports.req.Owner)
	assert.Equal(t, report.TriggerAPI, reports.req.Trigger)
	assert.Equal(t, []string{"a@x.com"}, reports.req.Filters.Users)
	require.NotNil(t, reports.req.Filters.DateFrom)
	assert.Equal(t, "2024-01-01", reports.req.Filters.DateFrom.Format("2006-01-02"))
}

func TestGenerate_DefaultOwner(t *testing.T) {
	reports := &fakeReports{res: &report.Result{StoragePath: "local/daily/x.md"}}
	w := do(testServer(&fakeDashboard{}, reports, nil), http.MethodPost, "/api/reports/daily", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "local", reports.req.Owner)
}

func TestGenerate_FailureFrame(t *testing.T) {
	reports := &fakeReports{err: fmt.Errorf("search: %w", jira.ErrUnauthorized)}
	w := do(testServer(&fakeDashboard{}, reports, nil), http.MethodPost, "/api/reports/planning", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	fs := frames(t, w.Body.String())
	last := fs[len(fs)-1]
	assert.Contains(t, last["error"], "unauthorized")
	assert.Equal(t, KindAuth, last["kind"])
	assert.NotContains(t, last, "storagePath")
}

func TestGenerate_Invalid(t *testing.T) {
	s := testServer(&fakeDashboard{}, &fakeReports{}, nil)

	w := do(s, http.MethodPost, "/api/reports/monthly", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, KindInvalid, decode(t, w)["kind"])

	w = do(s, http.MethodPost, "/api/reports/weekly", `{"dateFrom":"01.01.2024"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReports(t *testing.T) {
	id := uuid.New()
	arts := &fakeArtifacts{
		list:    []artifact.Artifact{{ID: id, Owner: "alice", Type: "weekly", Title: "Недельный отчет - 08.01.2024"}},
		content: "# Недельный отчет",
	}
	s := testServer(&fakeDashboard{}, &fakeReports{}, arts)

	w := do(s, http.MethodGet, "/api/reports?type=weekly&limit=5", "", map[string]string{OwnerHeader: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, artifact.ListOptions{Owner: "alice", Type: "weekly", Limit: 5}, arts.opts)
	list, ok := decode(t, w)["reports"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)

	w = do(s, http.MethodGet, "/api/reports/"+id.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# Недельный отчет", decode(t, w)["content"])

	w = do(s, http.MethodGet, "/api/reports/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodGet, "/api/reports/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodGet, "/api/reports?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReports_NoStorage(t *testing.T) {
	w := do(testServer(&fakeDashboard{}, &fakeReports{}, nil), http.MethodGet, "/api/reports", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
