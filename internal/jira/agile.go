package jira

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Fields returns the full field catalog.
func (c *Client) Fields(ctx context.Context) ([]Field, error) {
	var fields []Field
	if err := c.getJSON(ctx, "/rest/api/3/field", nil, &fields); err != nil {
		return nil, fmt.Errorf("getting fields: %w", err)
	}
	return fields, nil
}

// Boards lists agile boards, optionally restricted to a project.
func (c *Client) Boards(ctx context.Context, projectKeyOrID string) ([]Board, error) {
	var all []Board
	startAt := 0

	for {
		q := url.Values{}
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", "50")
		if projectKeyOrID != "" {
			q.Set("projectKeyOrId", projectKeyOrID)
		}

		var page valuesPage[Board]
		if err := c.getJSON(ctx, "/rest/agile/1.0/board", q, &page); err != nil {
			return nil, fmt.Errorf("listing boards: %w", err)
		}
		all = append(all, page.Values...)

		if page.IsLast || len(page.Values) == 0 {
			break
		}
		startAt += len(page.Values)
	}

	return all, nil
}

// FindScrumBoard returns the first scrum board of a project, or nil.
func (c *Client) FindScrumBoard(ctx context.Context, projectKey string) (*Board, error) {
	boards, err := c.Boards(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	for i := range boards {
		if strings.EqualFold(boards[i].Type, "scrum") {
			return &boards[i], nil
		}
	}
	return nil, nil
}

// Sprints lists the sprints of a board; state may be empty for all states.
func (c *Client) Sprints(ctx context.Context, boardID int, state string) ([]Sprint, error) {
	var all []Sprint
	startAt := 0

	for {
		q := url.Values{}
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", "50")
		if state != "" {
			q.Set("state", state)
		}

		var page valuesPage[Sprint]
		path := fmt.Sprintf("/rest/agile/1.0/board/%d/sprint", boardID)
		if err := c.getJSON(ctx, path, q, &page); err != nil {
			return nil, fmt.Errorf("listing sprints of board %d: %w", boardID, err)
		}
		all = append(all, page.Values...)

		if page.IsLast || len(page.Values) == 0 {
			break
		}
		startAt += len(page.Values)
	}

	return all, nil
}

// SprintIssues returns up to 200 issues of a sprint with the fields the
// velocity and burndown computations read.
func (c *Client) SprintIssues(ctx context.Context, sprintID int, storyPointsField string) ([]Issue, error) {
	fields := []string{"summary", "status", "assignee", "issuetype", "created", "resolutiondate"}
	if storyPointsField != "" {
		fields = append(fields, storyPointsField)
	}

	q := url.Values{}
	q.Set("maxResults", "200")
	q.Set("fields", strings.Join(fields, ","))

	var resp searchResponse
	path := fmt.Sprintf("/rest/agile/1.0/sprint/%d/issue", sprintID)
	if err := c.getJSON(ctx, path, q, &resp); err != nil {
		return nil, fmt.Errorf("listing issues of sprint %d: %w", sprintID, err)
	}
	return resp.Issues, nil
}

// Burndown returns the native scope-change burndown log of a sprint.
func (c *Client) Burndown(ctx context.Context, boardID, sprintID int) (*BurndownChart, error) {
	q := url.Values{}
	q.Set("rapidViewId", strconv.Itoa(boardID))
	q.Set("sprintId", strconv.Itoa(sprintID))

	var chart BurndownChart
	if err := c.getJSON(ctx, "/rest/greenhopper/1.0/rapid/charts/scopechangeburndownchart", q, &chart); err != nil {
		return nil, fmt.Errorf("getting burndown of sprint %d: %w", sprintID, err)
	}
	return &chart, nil
}

// SprintReport returns the greenhopper sprint report.
func (c *Client) SprintReport(ctx context.Context, boardID, sprintID int) (*SprintReport, error) {
	q := url.Values{}
	q.Set("rapidViewId", strconv.Itoa(boardID))
	q.Set("sprintId", strconv.Itoa(sprintID))

	var resp struct {
		Sprint   Sprint `json:"sprint"`
		Contents struct {
			CompletedIssues                   []Issue `json:"completedIssues"`
			IssuesNotCompletedInCurrentSprint []Issue `json:"issuesNotCompletedInCurrentSprint"`
			PuntedIssues                      []Issue `json:"puntedIssues"`
		} `json:"contents"`
	}
	if err := c.getJSON(ctx, "/rest/greenhopper/1.0/rapid/charts/sprintreport", q, &resp); err != nil {
		return nil, fmt.Errorf("getting sprint report %d: %w", sprintID, err)
	}

	report := &SprintReport{
		Sprint:            resp.Sprint,
		CompletedIssues:   resp.Contents.CompletedIssues,
		IncompletedIssues: resp.Contents.IssuesNotCompletedInCurrentSprint,
		PuntedIssues:      resp.Contents.PuntedIssues,
	}
	report.Sprint.State = strings.ToLower(report.Sprint.State)
	if report.Sprint.State == "" {
		report.Sprint.State = SprintClosed
	}
	return report, nil
}
