package jira

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

const worklogPageSize = 100

// Worklogs returns every worklog of an issue, following pagination.
func (c *Client) Worklogs(ctx context.Context, issueKey string) ([]Worklog, error) {
	var all []Worklog
	startAt := 0

	for {
		q := url.Values{}
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(worklogPageSize))

		var page worklogPage
		path := "/rest/api/3/issue/" + url.PathEscape(issueKey) + "/worklog"
		if err := c.getJSON(ctx, path, q, &page); err != nil {
			return nil, fmt.Errorf("getting worklogs for %s: %w", issueKey, err)
		}
		all = append(all, page.Worklogs...)

		if len(page.Worklogs) == 0 || len(all) >= page.Total {
			break
		}
		startAt += len(page.Worklogs)
	}

	return all, nil
}

// WorklogSource reads the worklogs of one issue.
type WorklogSource interface {
	Worklogs(ctx context.Context, issueKey string) ([]Worklog, error)
}

// WorklogResult is the outcome of fetching one issue's worklogs. A failed
// fetch carries Err and an empty Worklogs slice.
type WorklogResult struct {
	Key      string
	Worklogs []Worklog
	Err      error
}

// OK reports whether the fetch succeeded.
func (r WorklogResult) OK() bool {
	return r.Err == nil
}

// WorklogSet holds fetch results keyed by issue key.
type WorklogSet map[string]WorklogResult

// For returns the worklogs of key; failed or missing issues yield nil.
func (s WorklogSet) For(key string) []Worklog {
	return s[key].Worklogs
}

// Failed returns the keys whose fetch failed.
func (s WorklogSet) Failed() []string {
	var keys []string
	for k, r := range s {
		if !r.OK() {
			keys = append(keys, k)
		}
	}
	return keys
}

// WorklogFetcher fetches worklogs for many issues with a bounded number of
// requests in flight. Per-issue failures degrade to an empty result.
type WorklogFetcher struct {
	source      WorklogSource
	concurrency int
	log         zerolog.Logger
}

// NewWorklogFetcher creates a fetcher; concurrency < 1 means 1.
func NewWorklogFetcher(source WorklogSource, concurrency int, log zerolog.Logger) *WorklogFetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &WorklogFetcher{source: source, concurrency: concurrency, log: log}
}

// Fetch returns the worklogs of a single issue.
func (f *WorklogFetcher) Fetch(ctx context.Context, issueKey string) WorklogResult {
	wls, err := f.source.Worklogs(ctx, issueKey)
	if err != nil {
		f.log.Warn().Err(err).Str("issue", issueKey).Msg("worklog fetch failed, using empty list")
		return WorklogResult{Key: issueKey, Err: err}
	}
	return WorklogResult{Key: issueKey, Worklogs: wls}
}

// FetchAll fetches the worklogs of the given issues. Results are keyed by
// issue key regardless of completion order. Duplicate keys are fetched once.
func (f *WorklogFetcher) FetchAll(ctx context.Context, keys []string) WorklogSet {
	p := pool.NewWithResults[WorklogResult]().WithMaxGoroutines(f.concurrency)

	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		key := key
		p.Go(func() WorklogResult {
			if err := ctx.Err(); err != nil {
				return WorklogResult{Key: key, Err: err}
			}
			return f.Fetch(ctx, key)
		})
	}

	set := make(WorklogSet, len(seen))
	for _, r := range p.Wait() {
		set[r.Key] = r
	}
	return set
}

// FetchIssues fetches worklogs for the first limit issues; limit <= 0
// means all of them.
func (f *WorklogFetcher) FetchIssues(ctx context.Context, issues []Issue, limit int) WorklogSet {
	if limit > 0 && len(issues) > limit {
		issues = issues[:limit]
	}
	keys := make([]string, 0, len(issues))
	for _, is := range issues {
		key := is.Key
		if key == "" {
			key = is.ID
		}
		keys = append(keys, key)
	}
	return f.FetchAll(ctx, keys)
}
