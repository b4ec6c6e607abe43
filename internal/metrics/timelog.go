package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/kiracore/jirapulse/internal/jira"
)

// DayLayout is the key format of daily buckets.
const DayLayout = "2006-01-02"

// WorklogEntry is one worklog inside the aggregation window, attached to
// its issue.
type WorklogEntry struct {
	IssueKey string    `json:"issue_key"`
	Summary  string    `json:"summary"`
	User     string    `json:"user"`
	Date     string    `json:"date"`
	Started  time.Time `json:"started"`
	Seconds  int       `json:"seconds"`
	Comment  string    `json:"comment,omitempty"`
}

// UserTime is a per-user row.
type UserTime struct {
	User    string `json:"user"`
	Seconds int    `json:"seconds"`
}

// DayTime is a per-day row.
type DayTime struct {
	Date    string `json:"date"`
	Seconds int    `json:"seconds"`
}

// TimeTotals is the result of bucketing worklogs by user and by day.
type TimeTotals struct {
	From time.Time
	To   time.Time

	// ByUser holds only the pre-seeded users; other authors are counted in
	// ByDay and Total but get no row of their own.
	ByUser  map[string]int
	ByDay   map[string]int
	Entries []WorklogEntry
	Total   int

	users []string
}

// Window is an inclusive time range.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies within [From, To].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// DayWindow returns [00:00, 23:59:59.999] of the day containing t in loc.
func DayWindow(t time.Time, loc *time.Location) Window {
	t = t.In(loc)
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	to := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	return Window{From: from, To: to}
}

// SpanWindow returns [00:00 of from, 23:59:59.999 of to] in loc.
func SpanWindow(from, to time.Time, loc *time.Location) Window {
	return Window{From: DayWindow(from, loc).From, To: DayWindow(to, loc).To}
}

// CollectTime buckets the worklogs of issues that fall inside w. Issues
// whose worklog fetch failed contribute nothing. Author identities match
// users case-insensitively.
func CollectTime(issues []jira.Issue, worklogs jira.WorklogSet, w Window, users []string, loc *time.Location) *TimeTotals {
	t := &TimeTotals{
		From:   w.From,
		To:     w.To,
		ByUser: make(map[string]int, len(users)),
		ByDay:  make(map[string]int),
	}

	canonical := make(map[string]string, len(users))
	for _, u := range users {
		key := strings.ToLower(u)
		if _, dup := canonical[key]; dup {
			continue
		}
		canonical[key] = u
		t.ByUser[u] = 0
		t.users = append(t.users, u)
	}

	seen := make(map[string]bool, len(issues))
	for i := range issues {
		is := &issues[i]
		key := is.Key
		if key == "" {
			key = is.ID
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		for _, wl := range worklogs.For(key) {
			started := wl.Started.Time
			if !w.Contains(started) {
				continue
			}

			author := wl.AuthorIdentity()
			date := started.In(loc).Format(DayLayout)

			t.Entries = append(t.Entries, WorklogEntry{
				IssueKey: key,
				Summary:  is.Fields.Summary,
				User:     author,
				Date:     date,
				Started:  started,
				Seconds:  wl.TimeSpentSeconds,
				Comment:  wl.CommentText(),
			})
			t.Total += wl.TimeSpentSeconds
			t.ByDay[date] += wl.TimeSpentSeconds

			if u, ok := canonical[strings.ToLower(author)]; ok {
				t.ByUser[u] += wl.TimeSpentSeconds
			}
		}
	}

	return t
}

// UserTotal sums the per-user rows.
func (t *TimeTotals) UserTotal() int {
	sum := 0
	for _, s := range t.ByUser {
		sum += s
	}
	return sum
}

// Users returns the per-user rows in seed order.
func (t *TimeTotals) Users() []UserTime {
	rows := make([]UserTime, 0, len(t.users))
	for _, u := range t.users {
		rows = append(rows, UserTime{User: u, Seconds: t.ByUser[u]})
	}
	return rows
}

// UsersByTime returns the per-user rows sorted by time descending; ties
// keep seed order.
func (t *TimeTotals) UsersByTime() []UserTime {
	rows := t.Users()
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Seconds > rows[j].Seconds
	})
	return rows
}

// Days returns the per-day rows, most recent first.
func (t *TimeTotals) Days() []DayTime {
	rows := make([]DayTime, 0, len(t.ByDay))
	for d, s := range t.ByDay {
		rows = append(rows, DayTime{Date: d, Seconds: s})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date > rows[j].Date
	})
	return rows
}

// EntriesByDate returns the entries most recent day first. Entries of the
// same day are ordered by start time, then issue key.
func (t *TimeTotals) EntriesByDate() []WorklogEntry {
	rows := make([]WorklogEntry, len(t.Entries))
	copy(rows, t.Entries)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		if !rows[i].Started.Equal(rows[j].Started) {
			return rows[i].Started.Before(rows[j].Started)
		}
		return rows[i].IssueKey < rows[j].IssueKey
	})
	return rows
}

// EntriesFor returns the entries of one user, matched case-insensitively.
func (t *TimeTotals) EntriesFor(user string) []WorklogEntry {
	var out []WorklogEntry
	for _, e := range t.Entries {
		if strings.EqualFold(e.User, user) {
			out = append(out, e)
		}
	}
	return out
}

// Percent returns part/whole as a rounded percentage, 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(float64(part)*100/float64(whole) + 0.5)
}
