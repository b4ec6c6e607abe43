package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	// DefaultPageSize is used by Search when limit is not positive.
	DefaultPageSize = 50
	// AllPageSize is the page size GetAll walks the result set with.
	AllPageSize = 100
)

// Search runs one page of a JQL search against the enhanced search
// endpoint (POST /rest/api/3/search/jql). A response without a total
// reports the page length as the total and leaves TotalKnown unset.
func (c *Client) Search(ctx context.Context, jql string, startAt, maxResults int) (*SearchResult, error) {
	return c.search(ctx, jql, []string{"*all"}, startAt, "", maxResults)
}

func (c *Client) search(ctx context.Context, jql string, fields []string, startAt int, token string, maxResults int) (*SearchResult, error) {
	if maxResults <= 0 {
		maxResults = DefaultPageSize
	}

	body := map[string]any{
		"jql":        jql,
		"fields":     fields,
		"maxResults": maxResults,
	}
	if startAt > 0 {
		body["startAt"] = startAt
	}
	if token != "" {
		body["nextPageToken"] = token
	}

	data, err := c.do(ctx, http.MethodPost, "/rest/api/3/search/jql", nil, body)
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	issues := resp.Issues
	if issues == nil {
		issues = resp.Values
	}

	result := &SearchResult{
		Issues:        issues,
		Total:         len(issues),
		StartAt:       resp.StartAt,
		MaxResults:    resp.MaxResults,
		NextPageToken: resp.NextToken,
		IsLast:        resp.IsLast,
	}
	if resp.Total != nil {
		result.Total = *resp.Total
		result.TotalKnown = true
	}
	if result.StartAt == 0 {
		result.StartAt = startAt
	}
	if result.MaxResults == 0 {
		result.MaxResults = maxResults
	}
	return result, nil
}

// scan walks every page of jql, handing each to fn in offset order. It
// follows nextPageToken when the server sends one and startAt otherwise.
// Without a total, a short page ends the scan; a page repeating the
// previous page's first issue means the server ignored the cursor and
// also ends it.
func (c *Client) scan(ctx context.Context, jql string, fields []string, fn func([]Issue)) error {
	startAt := 0
	token := ""
	collected := 0
	prevFirst := ""

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := c.search(ctx, jql, fields, startAt, token, AllPageSize)
		if err != nil {
			return err
		}
		if len(page.Issues) > 0 {
			first := page.Issues[0].ID + "/" + page.Issues[0].Key
			if collected > 0 && first == prevFirst {
				return nil
			}
			prevFirst = first
		}

		fn(page.Issues)
		collected += len(page.Issues)

		if !page.more(collected) {
			return nil
		}
		startAt += len(page.Issues)
		token = page.NextPageToken
	}
}

// GetAll pages through a search until the total reported by the latest
// page is reached, or, when the server reports no total, until a short or
// last page. Pages are concatenated in offset order without
// de-duplication. An empty page ends the scan early.
func (c *Client) GetAll(ctx context.Context, jql string) ([]Issue, error) {
	var all []Issue
	err := c.scan(ctx, jql, []string{"*all"}, func(page []Issue) {
		all = append(all, page...)
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// Count returns the number of issues matching jql. The enhanced search
// endpoint reports no total, so the matches are walked with only the key
// field requested.
func (c *Client) Count(ctx context.Context, jql string) (int, error) {
	n := 0
	err := c.scan(ctx, jql, []string{"key"}, func(page []Issue) {
		n += len(page)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
