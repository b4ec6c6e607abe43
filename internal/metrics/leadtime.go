package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/kiracore/jirapulse/internal/jira"
)

const day = 24 * time.Hour

// TimeStats summarizes a sample of durations in days
type TimeStats struct {
	Average float64 `json:"average_days"`
	Median  float64 `json:"median_days"`
	P85     float64 `json:"p85_days"`
	Min     float64 `json:"min_days"`
	Max     float64 `json:"max_days"`
	StdDev  float64 `json:"std_dev_days"`
	Count   int     `json:"sample_count"`
}

// LeadTimes returns created-to-resolved durations in fractional days for
// issues in the done category that carry a resolution date.
func LeadTimes(issues []jira.Issue) []float64 {
	var out []float64
	for i := range issues {
		is := &issues[i]
		if is.Category() != jira.CategoryDone {
			continue
		}
		resolved, ok := is.Resolved()
		if !ok {
			continue
		}
		out = append(out, float64(resolved.Sub(is.Fields.Created.Time))/float64(day))
	}
	return out
}

// LeadTimeDays is the average lead time rounded to whole days, or 0 when
// no issue qualifies.
func LeadTimeDays(issues []jira.Issue) int {
	values := LeadTimes(issues)
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return int(math.Floor(sum/float64(len(values)) + 0.5))
}

// CalculateTimeStats computes summary statistics rounded to 0.1. The
// input slice is sorted in place.
func CalculateTimeStats(values []float64) TimeStats {
	if len(values) == 0 {
		return TimeStats{}
	}

	sort.Float64s(values)
	n := len(values)

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	sumSquares := 0.0
	for _, v := range values {
		sumSquares += (v - mean) * (v - mean)
	}
	stdDev := math.Sqrt(sumSquares / float64(n))

	p50idx := n / 2
	p85idx := int(float64(n) * 0.85)
	if p85idx >= n {
		p85idx = n - 1
	}

	stats := TimeStats{
		Count:   n,
		Average: round1(mean),
		Min:     round1(values[0]),
		Max:     round1(values[n-1]),
		StdDev:  round1(stdDev),
		P85:     round1(values[p85idx]),
	}

	if n%2 == 0 {
		stats.Median = round1((values[p50idx-1] + values[p50idx]) / 2)
	} else {
		stats.Median = round1(values[p50idx])
	}

	return stats
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
