package jira

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestBoards(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/agile/1.0/board" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("projectKeyOrId") != "DEV" {
			t.Errorf("projectKeyOrId = %q", r.URL.Query().Get("projectKeyOrId"))
		}
		switch r.URL.Query().Get("startAt") {
		case "0":
			w.Write([]byte(`{"isLast": false, "values": [{"id": 1, "name": "DEV kanban", "type": "kanban"}]}`))
		default:
			w.Write([]byte(`{"isLast": true, "values": [{"id": 7, "name": "DEV scrum", "type": "scrum"}]}`))
		}
	})

	boards, err := c.Boards(context.Background(), "DEV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boards) != 2 {
		t.Fatalf("got %d boards, want 2", len(boards))
	}

	scrum, err := c.FindScrumBoard(context.Background(), "DEV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scrum == nil || scrum.ID != 7 {
		t.Errorf("FindScrumBoard() = %+v, want board 7", scrum)
	}
}

func TestFindScrumBoard_None(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"isLast": true, "values": [{"id": 1, "type": "kanban"}]}`))
	})

	b, err := c.FindScrumBoard(context.Background(), "DEV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != nil {
		t.Errorf("FindScrumBoard() = %+v, want nil", b)
	}
}

func TestSprints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/agile/1.0/board/7/sprint" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"isLast": true, "values": [
			{"id": 11, "name": "S1", "state": "closed", "startDate": "2024-01-01T00:00:00.000Z", "endDate": "2024-01-14T00:00:00.000Z", "completeDate": "2024-01-15T10:00:00.000Z"},
			{"id": 12, "name": "S2", "state": "active", "startDate": "2024-01-15T00:00:00.000Z", "endDate": "2024-01-29T00:00:00.000Z"}
		]}`))
	})

	sprints, err := c.Sprints(context.Background(), 7, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sprints) != 2 {
		t.Fatalf("got %d sprints, want 2", len(sprints))
	}
	if sprints[0].CompleteDate == nil || sprints[0].CompleteDate.Day() != 15 {
		t.Errorf("completeDate not decoded: %+v", sprints[0].CompleteDate)
	}
	if sprints[1].State != SprintActive {
		t.Errorf("State = %q, want active", sprints[1].State)
	}
}

func TestSprintIssues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/agile/1.0/sprint/12/issue" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("maxResults") != "200" {
			t.Errorf("maxResults = %q", r.URL.Query().Get("maxResults"))
		}
		if !strings.Contains(r.URL.Query().Get("fields"), "customfield_10016") {
			t.Errorf("story points field not requested: %q", r.URL.Query().Get("fields"))
		}
		w.Write([]byte(`{"issues": [{"key": "DEV-1", "fields": {"customfield_10016": 3}}]}`))
	})

	issues, err := c.SprintIssues(context.Background(), 12, "customfield_10016")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if n, _ := issues[0].GetNumber("customfield_10016"); n != 3 {
		t.Errorf("story points = %v, want 3", n)
	}
}

func TestBurndown(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("rapidViewId") != "7" || r.URL.Query().Get("sprintId") != "12" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"startTime": 1704067200000, "endTime": 1705276800000, "changes": [{"time": 1704067200000, "value": 20}]}`))
	})

	chart, err := c.Burndown(context.Background(), 7, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chart.Start().UTC().Day() != 1 || chart.End().UTC().Day() != 15 {
		t.Errorf("window = %v..%v", chart.Start().UTC(), chart.End().UTC())
	}
	if len(chart.Changes) != 1 || chart.Changes[0].Value != 20 {
		t.Errorf("changes = %+v", chart.Changes)
	}
}

func TestSprintReport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"sprint": {"id": 12, "name": "S2", "state": "ACTIVE", "startDate": "13/Dec/23 12:23 PM", "endDate": "None"},
			"contents": {
				"completedIssues": [{"key": "DEV-1"}],
				"issuesNotCompletedInCurrentSprint": [{"key": "DEV-2"}, {"key": "DEV-3"}],
				"puntedIssues": []
			}
		}`))
	})

	report, err := c.SprintReport(context.Background(), 7, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Sprint.State != SprintActive {
		t.Errorf("State = %q, want active", report.Sprint.State)
	}
	if report.Sprint.StartDate == nil || report.Sprint.StartDate.Year() != 2023 {
		t.Errorf("StartDate = %v", report.Sprint.StartDate)
	}
	if len(report.CompletedIssues) != 1 || len(report.IncompletedIssues) != 2 {
		t.Errorf("contents = %d completed / %d incomplete", len(report.CompletedIssues), len(report.IncompletedIssues))
	}
}
