// Package metrics holds the pure aggregation routines behind the
// dashboard and the reports. Nothing here performs I/O.
package metrics

import (
	"sort"

	"github.com/kiracore/jirapulse/internal/jira"
)

// DefaultStatusColor is used for statuses missing from the color table.
const DefaultStatusColor = "#6B7280"

// UnknownStatus names issues without a status.
const UnknownStatus = "Unknown"

var statusColors = map[string]string{
	"To Do":       "#9CA3AF",
	"In Progress": "#3B82F6",
	"In Review":   "#8B5CF6",
	"Done":        "#10B981",
	"Blocked":     "#EF4444",
}

// StatusColor returns the display color of a status name.
func StatusColor(status string) string {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return DefaultStatusColor
}

// StatusCount is one slice of the status distribution.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Color  string `json:"color"`
}

// StatusDistribution groups issues by status name, sorted by count
// descending. Ties keep first-encountered order.
func StatusDistribution(issues []jira.Issue) []StatusCount {
	var out []StatusCount
	index := make(map[string]int)

	for i := range issues {
		name := issues[i].StatusName()
		if name == "" {
			name = UnknownStatus
		}
		if idx, ok := index[name]; ok {
			out[idx].Count++
			continue
		}
		index[name] = len(out)
		out = append(out, StatusCount{Status: name, Count: 1, Color: StatusColor(name)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// GroupByStatus returns issues grouped by status name along with the
// group order used by StatusDistribution.
func GroupByStatus(issues []jira.Issue) (map[string][]jira.Issue, []StatusCount) {
	groups := make(map[string][]jira.Issue)
	for _, is := range issues {
		name := is.StatusName()
		if name == "" {
			name = UnknownStatus
		}
		groups[name] = append(groups[name], is)
	}
	return groups, StatusDistribution(issues)
}

// WIPCount counts issues in the indeterminate status category.
func WIPCount(issues []jira.Issue) int {
	n := 0
	for i := range issues {
		if issues[i].Category() == jira.CategoryIndeterminate {
			n++
		}
	}
	return n
}

// CountCategory counts issues in the given status category.
func CountCategory(issues []jira.Issue, cat jira.Category) int {
	n := 0
	for i := range issues {
		if issues[i].Category() == cat {
			n++
		}
	}
	return n
}
