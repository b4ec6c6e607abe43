// Package report generates the markdown reports: planning, daily,
// weekly and time.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies a report type.
type Kind string

const (
	Planning Kind = "planning"
	Daily    Kind = "daily"
	Weekly   Kind = "weekly"
	Time     Kind = "time"
)

// Kinds lists every report kind.
var Kinds = []Kind{Planning, Daily, Weekly, Time}

// ErrUnknownKind is returned for a report type that does not exist.
var ErrUnknownKind = errors.New("unknown report type")

// ParseKind validates s as a report kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q (planning|daily|weekly|time)", ErrUnknownKind, s)
}

// Title is the human title stored with a generated artifact.
func (k Kind) Title() string {
	switch k {
	case Planning:
		return "Планирование"
	case Daily:
		return "Дейлик отчет"
	case Weekly:
		return "Недельный отчет"
	case Time:
		return "Отчет о времени"
	}
	return string(k)
}

// Filters narrow a report. Zero values mean "use the configured default".
type Filters struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	Users      []string
	ProjectKey string
}

// FilterInput is the wire form of Filters; dates are YYYY-MM-DD.
type FilterInput struct {
	DateFrom   string   `json:"dateFrom,omitempty" form:"dateFrom"`
	DateTo     string   `json:"dateTo,omitempty" form:"dateTo"`
	Users      []string `json:"users,omitempty" form:"users"`
	ProjectKey string   `json:"projectKey,omitempty" form:"projectKey"`
}

// Filters parses the input in loc.
func (in FilterInput) Filters(loc *time.Location) (Filters, error) {
	f := Filters{ProjectKey: strings.TrimSpace(in.ProjectKey)}

	for _, u := range in.Users {
		if u = strings.TrimSpace(u); u != "" {
			f.Users = append(f.Users, u)
		}
	}

	var err error
	if f.DateFrom, err = parseDate("dateFrom", in.DateFrom, loc); err != nil {
		return Filters{}, err
	}
	if f.DateTo, err = parseDate("dateTo", in.DateTo, loc); err != nil {
		return Filters{}, err
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return Filters{}, fmt.Errorf("dateTo %s is before dateFrom %s", in.DateTo, in.DateFrom)
	}
	return f, nil
}

func parseDate(field, s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", field, s)
	}
	return &t, nil
}

// FormatDuration renders seconds as "{h}ч {m}м", or "{m}м" below an hour.
// Sub-minute remainders are truncated.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dч %dм", h, m)
	}
	return fmt.Sprintf("%dм", m)
}

// FormatDate renders a date as dd.MM.yyyy.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDateTime renders a timestamp as "4 января 2026 г. в 05:13".
func FormatDateTime(t time.Time) string {
	return fmt.Sprintf("%d %s %d г. в %02d:%02d",
		t.Day(), monthsGenitive[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}
