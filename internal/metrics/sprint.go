package metrics

import (
	"errors"
	"math"
	"time"

	"github.com/kiracore/jirapulse/internal/jira"
)

// DefaultSprintDays is the estimated sprint length when the dates give none.
const DefaultSprintDays = 14

// ErrNoWindow is returned for a native chart whose end is not after its start.
var ErrNoWindow = errors.New("burndown chart has no sprint window")

// Velocity sums the story points of done issues. Issues without a numeric
// value count as 0.
func Velocity(issues []jira.Issue, storyPointsField string) float64 {
	sum := 0.0
	for i := range issues {
		if issues[i].Category() != jira.CategoryDone {
			continue
		}
		if n, ok := issues[i].GetNumber(storyPointsField); ok {
			sum += n
		}
	}
	return sum
}

// TotalPoints sums the story points of all issues.
func TotalPoints(issues []jira.Issue, storyPointsField string) float64 {
	sum := 0.0
	for i := range issues {
		if n, ok := issues[i].GetNumber(storyPointsField); ok {
			sum += n
		}
	}
	return sum
}

// BurndownPoint is one day of a burndown chart.
type BurndownPoint struct {
	Date      string  `json:"date"`
	Remaining float64 `json:"remaining"`
	Ideal     float64 `json:"ideal"`
	Day       int     `json:"day"`
}

func daysBetween(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

func ideal(initial float64, totalDays, d int) float64 {
	return math.Max(0, initial-initial/float64(totalDays)*float64(d))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NativeBurndown replays the change log into one point per calendar day
// from start to end inclusive. A day without changes carries the previous
// value forward; a day with several keeps the last one. The ideal line
// falls linearly from the first change's value to zero.
func NativeBurndown(chart *jira.BurndownChart, loc *time.Location) ([]BurndownPoint, error) {
	start := chart.Start().In(loc)
	end := chart.End().In(loc)
	if !end.After(start) {
		return nil, ErrNoWindow
	}

	totalDays := daysBetween(start, end)
	current := 0.0
	if len(chart.Changes) > 0 {
		current = chart.Changes[0].Value
	}
	initial := current

	points := make([]BurndownPoint, 0, totalDays+1)
	for d := 0; d <= totalDays; d++ {
		date := start.AddDate(0, 0, d)
		for _, c := range chart.Changes {
			if sameDay(time.UnixMilli(c.Time).In(loc), date) {
				current = c.Value
			}
		}
		points = append(points, BurndownPoint{
			Date:      date.Format(DayLayout),
			Remaining: current,
			Ideal:     ideal(initial, totalDays, d),
			Day:       d,
		})
	}
	return points, nil
}

// EstimatedBurndown approximates a burndown from sprint totals when no
// change log is available. Up to the elapsed day remaining work falls
// linearly by the completed points; after it the line stays flat at
// total - completed. It is an estimate, not reconstructed history.
func EstimatedBurndown(total, completed float64, start, end, now time.Time, loc *time.Location) []BurndownPoint {
	start = start.In(loc)

	totalDays := daysBetween(start, end)
	if totalDays <= 0 {
		totalDays = DefaultSprintDays
	}
	elapsed := daysBetween(start, now)
	if elapsed > totalDays {
		elapsed = totalDays
	}

	points := make([]BurndownPoint, 0, totalDays+1)
	for d := 0; d <= totalDays; d++ {
		var remaining float64
		if d <= elapsed {
			remaining = total - completed*float64(d)/math.Max(1, float64(elapsed))
		} else {
			remaining = total - completed
		}
		points = append(points, BurndownPoint{
			Date:      start.AddDate(0, 0, d).Format(DayLayout),
			Remaining: math.Max(0, remaining),
			Ideal:     ideal(total, totalDays, d),
			Day:       d,
		})
	}
	return points
}
