package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Time is a Jira timestamp. Jira emits offsets without a colon
// ("2024-01-03T10:15:00.000+0300"), which encoding/json cannot parse.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02",
	"02/Jan/06 3:04 PM",
}

// ParseTime parses any timestamp layout Jira is known to return.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" || s == "None" {
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// NewTime wraps t.
func NewTime(t time.Time) *Time {
	return &Time{Time: t}
}

// Category is the coarse bucket layered over status names.
type Category string

const (
	CategoryTodo          Category = "todo"
	CategoryIndeterminate Category = "indeterminate"
	CategoryDone          Category = "done"
)

// User represents a Jira user.
type User struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress,omitempty"`
	DisplayName  string `json:"displayName"`
	Active       bool   `json:"active"`
}

// Identity returns the most specific identifier available: email, then
// account id, then display name.
func (u *User) Identity() string {
	if u == nil {
		return ""
	}
	switch {
	case u.EmailAddress != "":
		return u.EmailAddress
	case u.AccountID != "":
		return u.AccountID
	default:
		return u.DisplayName
	}
}

// Status represents an issue status.
type Status struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	StatusCategory StatusCategory `json:"statusCategory"`
}

// StatusCategory represents a Jira status category.
type StatusCategory struct {
	ID   int    `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Category maps the Jira category key onto todo|indeterminate|done.
// Jira reports the to-do bucket as "new"; unknown keys count as todo.
func (s *Status) Category() Category {
	if s == nil {
		return CategoryTodo
	}
	switch s.StatusCategory.Key {
	case "done":
		return CategoryDone
	case "indeterminate":
		return CategoryIndeterminate
	default:
		return CategoryTodo
	}
}

// IssueType represents an issue type.
type IssueType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Issue is a read-only snapshot of a Jira issue.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the system fields the aggregation uses plus every
// custom field as raw JSON.
type IssueFields struct {
	Summary        string     `json:"summary"`
	Status         *Status    `json:"status,omitempty"`
	Assignee       *User      `json:"assignee,omitempty"`
	IssueType      *IssueType `json:"issuetype,omitempty"`
	Created        Time       `json:"created"`
	Updated        Time       `json:"updated"`
	ResolutionDate *Time      `json:"resolutiondate,omitempty"`
	Labels         []string   `json:"labels,omitempty"`

	Custom map[string]json.RawMessage `json:"-"`
}

type issueFieldsAlias IssueFields

func (f *IssueFields) UnmarshalJSON(data []byte) error {
	var alias issueFieldsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*f = IssueFields(alias)
	for k, v := range all {
		if !strings.HasPrefix(k, "customfield_") || bytes.Equal(v, []byte("null")) {
			continue
		}
		if f.Custom == nil {
			f.Custom = make(map[string]json.RawMessage)
		}
		f.Custom[k] = v
	}
	return nil
}

func (f IssueFields) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(issueFieldsAlias(f))
	if err != nil || len(f.Custom) == 0 {
		return base, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(base, &all); err != nil {
		return nil, err
	}
	for k, v := range f.Custom {
		all[k] = v
	}
	return json.Marshal(all)
}

// StatusName returns the status name, or "" when the status is missing.
func (i *Issue) StatusName() string {
	if i.Fields.Status == nil {
		return ""
	}
	return i.Fields.Status.Name
}

// Category returns the status category of the issue.
func (i *Issue) Category() Category {
	return i.Fields.Status.Category()
}

// AssigneeIdentity returns the assignee's identity or "".
func (i *Issue) AssigneeIdentity() string {
	return i.Fields.Assignee.Identity()
}

// Resolved returns the resolution time and whether one is set.
func (i *Issue) Resolved() (time.Time, bool) {
	if i.Fields.ResolutionDate == nil || i.Fields.ResolutionDate.IsZero() {
		return time.Time{}, false
	}
	return i.Fields.ResolutionDate.Time, true
}

// SetCustom stores v as the raw value of a custom field.
func (i *Issue) SetCustom(fieldID string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if i.Fields.Custom == nil {
		i.Fields.Custom = make(map[string]json.RawMessage)
	}
	i.Fields.Custom[fieldID] = raw
	return nil
}

// GetNumber reads a numeric custom field. Numbers encoded as strings are
// accepted; anything else reports false.
func (i *Issue) GetNumber(fieldID string) (float64, bool) {
	raw, ok := i.Fields.Custom[fieldID]
	if !ok {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// GetString reads a textual custom field. Option and team objects are
// reduced to their value, name or id, in that order.
func (i *Issue) GetString(fieldID string) (string, bool) {
	raw, ok := i.Fields.Custom[fieldID]
	if !ok {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var obj struct {
		Value string `json:"value"`
		Name  string `json:"name"`
		ID    string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		switch {
		case obj.Value != "":
			return obj.Value, true
		case obj.Name != "":
			return obj.Name, true
		case obj.ID != "":
			return obj.ID, true
		}
	}
	return "", false
}

// Worklog is a time-tracking entry logged against an issue.
type Worklog struct {
	ID               string          `json:"id"`
	IssueID          string          `json:"issueId,omitempty"`
	Author           *User           `json:"author,omitempty"`
	Started          Time            `json:"started"`
	TimeSpentSeconds int             `json:"timeSpentSeconds"`
	Comment          json.RawMessage `json:"comment,omitempty"`
}

// AuthorIdentity returns the author's identity, or "unknown".
func (w *Worklog) AuthorIdentity() string {
	if id := w.Author.Identity(); id != "" {
		return id
	}
	return "unknown"
}

// CommentText flattens the comment, which API v3 returns as an Atlassian
// Document Format tree and older deployments as a plain string.
func (w *Worklog) CommentText() string {
	if len(w.Comment) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(w.Comment, &s); err == nil {
		return s
	}

	var doc adfNode
	if err := json.Unmarshal(w.Comment, &doc); err != nil {
		return ""
	}
	var b strings.Builder
	doc.writeText(&b)
	return strings.TrimSpace(b.String())
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

func (n adfNode) writeText(b *strings.Builder) {
	b.WriteString(n.Text)
	for _, c := range n.Content {
		c.writeText(b)
	}
	if n.Type == "paragraph" {
		b.WriteString("\n")
	}
}

type worklogPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Worklogs   []Worklog `json:"worklogs"`
}

// SearchResult is one page of a JQL search.
type SearchResult struct {
	Issues     []Issue `json:"issues"`
	Total      int     `json:"total"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	// TotalKnown is false when the server omitted total; Total is then
	// the page length.
	TotalKnown    bool   `json:"-"`
	NextPageToken string `json:"nextPageToken,omitempty"`
	IsLast        bool   `json:"isLast,omitempty"`
}

// more reports whether another page may follow, given the number of
// issues collected so far.
func (r *SearchResult) more(collected int) bool {
	switch {
	case len(r.Issues) == 0, r.IsLast:
		return false
	case r.TotalKnown:
		return collected < r.Total
	case r.NextPageToken != "":
		return true
	}
	return len(r.Issues) >= r.MaxResults
}

// searchResponse tolerates both "issues" and "values" payloads and a
// missing total.
type searchResponse struct {
	Issues     []Issue `json:"issues"`
	Values     []Issue `json:"values"`
	Total      *int    `json:"total"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	NextToken  string  `json:"nextPageToken"`
	IsLast     bool    `json:"isLast"`
}

// Field is an entry of the field catalog.
type Field struct {
	ID          string       `json:"id"`
	Key         string       `json:"key,omitempty"`
	Name        string       `json:"name"`
	Custom      bool         `json:"custom"`
	ClauseNames []string     `json:"clauseNames,omitempty"`
	Schema      *FieldSchema `json:"schema,omitempty"`
}

// FieldSchema describes a field's value type.
type FieldSchema struct {
	Type     string `json:"type"`
	System   string `json:"system,omitempty"`
	Custom   string `json:"custom,omitempty"`
	CustomID int    `json:"customId,omitempty"`
}

// Board represents an agile board.
type Board struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Location *BoardLocation `json:"location,omitempty"`
}

// BoardLocation ties a board to a project.
type BoardLocation struct {
	ProjectID   int    `json:"projectId,omitempty"`
	ProjectKey  string `json:"projectKey,omitempty"`
	ProjectName string `json:"projectName,omitempty"`
}

// Sprint states.
const (
	SprintFuture = "future"
	SprintActive = "active"
	SprintClosed = "closed"
)

// Sprint represents a sprint on a scrum board.
type Sprint struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	State        string `json:"state"`
	StartDate    *Time  `json:"startDate,omitempty"`
	EndDate      *Time  `json:"endDate,omitempty"`
	CompleteDate *Time  `json:"completeDate,omitempty"`
	Goal         string `json:"goal,omitempty"`
}

// Finished returns completeDate, falling back to endDate.
func (s *Sprint) Finished() time.Time {
	if s.CompleteDate != nil && !s.CompleteDate.IsZero() {
		return s.CompleteDate.Time
	}
	if s.EndDate != nil {
		return s.EndDate.Time
	}
	return time.Time{}
}

type valuesPage[T any] struct {
	StartAt    int  `json:"startAt"`
	MaxResults int  `json:"maxResults"`
	IsLast     bool `json:"isLast"`
	Values     []T  `json:"values"`
}

// BurndownChange is one entry of the native scope-change log.
type BurndownChange struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// BurndownChart is the native burndown change log; times are epoch millis.
type BurndownChart struct {
	StartTime int64            `json:"startTime"`
	EndTime   int64            `json:"endTime"`
	Changes   []BurndownChange `json:"changes"`
}

// Start returns StartTime as a time.Time.
func (b *BurndownChart) Start() time.Time {
	return time.UnixMilli(b.StartTime)
}

// End returns EndTime as a time.Time.
func (b *BurndownChart) End() time.Time {
	return time.UnixMilli(b.EndTime)
}

// SprintReport is the greenhopper sprint report.
type SprintReport struct {
	Sprint            Sprint  `json:"sprint"`
	CompletedIssues   []Issue `json:"completedIssues"`
	IncompletedIssues []Issue `json:"incompletedIssues"`
	PuntedIssues      []Issue `json:"puntedIssues"`
}
