package metrics

import (
	"time"

	"github.com/kiracore/jirapulse/internal/jira"
)

// ThroughputWeeks is the number of week buckets on the kanban dashboard.
const ThroughputWeeks = 8

// WeekLabelLayout renders a bucket start as dd.MM.
const WeekLabelLayout = "02.01"

// WeeklyThroughput counts issues resolved and created in one week.
type WeeklyThroughput struct {
	Week      string    `json:"week"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Completed int       `json:"completed"`
	Created   int       `json:"created"`
}

// Contains reports whether t falls in the bucket. End is the last
// millisecond of Saturday, so adjacent buckets never share an instant.
func (w WeeklyThroughput) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End.Add(time.Millisecond))
}

// WeekStart returns 00:00 of the Sunday on or before t in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()-int(t.Weekday()), 0, 0, 0, 0, loc)
}

// WeekBuckets returns n contiguous Sunday-aligned weeks, oldest first,
// the last one containing now.
func WeekBuckets(now time.Time, loc *time.Location, n int) []WeeklyThroughput {
	current := WeekStart(now, loc)
	buckets := make([]WeeklyThroughput, 0, n)

	for i := n - 1; i >= 0; i-- {
		start := time.Date(current.Year(), current.Month(), current.Day()-7*i, 0, 0, 0, 0, loc)
		next := time.Date(start.Year(), start.Month(), start.Day()+7, 0, 0, 0, 0, loc)
		buckets = append(buckets, WeeklyThroughput{
			Week:  start.Format(WeekLabelLayout),
			Start: start,
			End:   next.Add(-time.Millisecond),
		})
	}
	return buckets
}

// Throughput counts, for each of the last n weeks, the issues resolved
// and the issues created in that week.
func Throughput(issues []jira.Issue, now time.Time, loc *time.Location, n int) []WeeklyThroughput {
	buckets := WeekBuckets(now, loc, n)

	for i := range issues {
		is := &issues[i]
		resolved, hasResolved := is.Resolved()
		created := is.Fields.Created.Time

		for b := range buckets {
			if hasResolved && buckets[b].Contains(resolved) {
				buckets[b].Completed++
			}
			if !created.IsZero() && buckets[b].Contains(created) {
				buckets[b].Created++
			}
		}
	}
	return buckets
}
