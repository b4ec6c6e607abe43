package jira

import (
	"fmt"
	"strings"
	"time"
)

// Query assembles a JQL expression from AND-ed clauses.
type Query struct {
	clauses []string
	orderBy string
}

// NewQuery starts a query with the given clauses; empty clauses are skipped.
func NewQuery(clauses ...string) *Query {
	q := &Query{}
	return q.And(clauses...)
}

// And appends clauses.
func (q *Query) And(clauses ...string) *Query {
	for _, c := range clauses {
		if strings.TrimSpace(c) != "" {
			q.clauses = append(q.clauses, c)
		}
	}
	return q
}

// OrderBy sets the ORDER BY suffix, e.g. "updated DESC".
func (q *Query) OrderBy(order string) *Query {
	q.orderBy = order
	return q
}

func (q *Query) String() string {
	s := strings.Join(q.clauses, " AND ")
	if q.orderBy != "" {
		s += " ORDER BY " + q.orderBy
	}
	return s
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote wraps s in double quotes, escaping backslashes and embedded quotes.
func Quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}

// QuoteList quotes every value and joins them with ", ".
func QuoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	return strings.Join(quoted, ", ")
}

// statusList quotes only values containing a space or hyphen; bare words,
// Cyrillic included, are accepted by Jira unquoted.
func statusList(values []string) string {
	out := make([]string, len(values))
	for i, v := range values {
		if strings.ContainsAny(v, " -") {
			out[i] = Quote(v)
		} else {
			out[i] = v
		}
	}
	return strings.Join(out, ", ")
}

// Project matches a project key.
func Project(key string) string {
	return "project = " + Quote(key)
}

// AssigneeIn matches any of the given users.
func AssigneeIn(users []string) string {
	if len(users) == 0 {
		return ""
	}
	return "assignee in (" + QuoteList(users) + ")"
}

// AssigneeIs matches a single user.
func AssigneeIs(user string) string {
	return "assignee = " + Quote(user)
}

// Unassigned matches issues without an assignee.
func Unassigned() string {
	return "assignee IS empty"
}

// StatusNotIn excludes the given statuses.
func StatusNotIn(statuses []string) string {
	if len(statuses) == 0 {
		return ""
	}
	return "status NOT IN (" + statusList(statuses) + ")"
}

// StatusIn matches the given statuses.
func StatusIn(statuses []string) string {
	if len(statuses) == 0 {
		return ""
	}
	return "status IN (" + QuoteList(statuses) + ")"
}

// UpdatedWithin matches issues updated in the last n days.
func UpdatedWithin(days int) string {
	return fmt.Sprintf("updated >= -%dd", days)
}

// UpdatedSince matches issues updated on or after day.
func UpdatedSince(day time.Time) string {
	return "updated >= " + Quote(day.Format("2006-01-02"))
}

// WorklogDateFrom matches issues with worklogs on or after day.
func WorklogDateFrom(day time.Time) string {
	return "worklogDate >= " + Quote(day.Format("2006-01-02"))
}

// FieldEquals matches a custom field by id, using the cf[NNNNN] form
// for customfield_NNNNN.
func FieldEquals(fieldID, value string) string {
	name := fieldID
	if n, ok := strings.CutPrefix(fieldID, "customfield_"); ok {
		name = "cf[" + n + "]"
	}
	return Quote(name) + " = " + Quote(value)
}
