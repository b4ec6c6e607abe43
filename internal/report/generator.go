package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kiracore/jirapulse/internal/advice"
	"github.com/kiracore/jirapulse/internal/config"
	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/kiracore/jirapulse/internal/metrics"
	"github.com/kiracore/jirapulse/internal/progress"
	"github.com/rs/zerolog"
)

// Issues scanned for worklogs per report.
const (
	DailyWorklogIssues  = 50
	WeeklyWorklogIssues = 100
	TimeWorklogIssues   = 100

	timeBatch       = 10
	timeDefaultDays = 30
)

// IssueSource runs a JQL query to completion.
type IssueSource interface {
	GetAll(ctx context.Context, jql string) ([]jira.Issue, error)
}

// WorklogSource fetches the worklogs of the first limit issues.
type WorklogSource interface {
	FetchIssues(ctx context.Context, issues []jira.Issue, limit int) jira.WorklogSet
}

// Generator builds reports from live Jira data.
type Generator struct {
	issues   IssueSource
	worklogs WorklogSource
	advisor  advice.Advisor
	cfg      *config.Config
	baseURL  string
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithAdvisor enables the recommendation sections.
func WithAdvisor(a advice.Advisor) Option {
	return func(g *Generator) {
		if a != nil {
			g.advisor = a
		}
	}
}

// NewGenerator creates a generator.
func NewGenerator(issues IssueSource, worklogs WorklogSource, cfg *config.Config, log zerolog.Logger, opts ...Option) *Generator {
	g := &Generator{
		issues:   issues,
		worklogs: worklogs,
		advisor:  advice.Noop(),
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.Jira.URL, "/"),
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a report of the given kind. Progress is reported to obs
// and always ends with (100, progress.DoneMessage) on success. The context
// is checked between stages; a cancelled generation returns its error and
// no report.
func (g *Generator) Generate(ctx context.Context, kind Kind, f Filters, obs progress.Observer) (string, error) {
	tr := progress.NewTracker(obs)
	start := g.now()
	log := g.log.With().Str("report", string(kind)).Logger()

	var (
		md  string
		err error
	)
	switch kind {
	case Planning:
		md, err = g.planning(ctx, f, tr, log)
	case Daily:
		md, err = g.daily(ctx, f, tr, log)
	case Weekly:
		md, err = g.weekly(ctx, f, tr, log)
	case Time:
		md, err = g.timeReport(ctx, f, tr, log)
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	if err != nil {
		log.Error().Err(err).Msg("report generation failed")
		return "", err
	}

	tr.Done()
	log.Info().Int("bytes", len(md)).Dur("took", g.now().Sub(start)).Msg("report generated")
	return md, nil
}

func (g *Generator) project(f Filters) string {
	if f.ProjectKey != "" {
		return f.ProjectKey
	}
	return g.cfg.Project.Key
}

func (g *Generator) users(f Filters) []string {
	if len(f.Users) > 0 {
		return f.Users
	}
	return g.cfg.Project.ActiveUsers
}

func (g *Generator) ask(ctx context.Context, kind Kind, prompt string, log zerolog.Logger) string {
	return advice.Ask(ctx, g.advisor, string(kind), prompt, log).Text
}

func (g *Generator) planning(ctx context.Context, f Filters, tr *progress.Tracker, log zerolog.Logger) (string, error) {
	key := g.project(f)
	users := g.users(f)

	tr.Report(10, "Загрузка задач...")
	jql := jira.NewQuery(
		jira.Project(key),
		jira.AssigneeIn(users),
		jira.StatusNotIn(g.cfg.Project.StatusExclusions),
	).String()
	issues, err := g.issues.GetAll(ctx, jql)
	if err != nil {
		return "", fmt.Errorf("loading active issues: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tr.Report(30, "Анализ статусов...")
	data := PlanningData{
		ProjectKey:  key,
		BaseURL:     g.baseURL,
		Users:       users,
		Issues:      issues,
		Statuses:    metrics.StatusDistribution(issues),
		GeneratedAt: g.now(),
	}

	tr.Report(50, "Анализ зависимостей...")
	data.Blocked = blockedIssues(issues)

	if g.advisor.Enabled() {
		tr.Report(70, "Получение советов от LLM...")
		data.Advice = g.ask(ctx, Planning, planningPrompt(data), log)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tr.Report(90, "Генерация отчета...")
	return RenderPlanning(data), nil
}

func blockedIssues(issues []jira.Issue) []jira.Issue {
	var out []jira.Issue
	for _, is := range issues {
		for _, l := range is.Fields.Labels {
			if strings.Contains(strings.ToLower(l), "blocked") {
				out = append(out, is)
				break
			}
		}
	}
	return out
}

func (g *Generator) daily(ctx context.Context, f Filters, tr *progress.Tracker, log zerolog.Logger) (string, error) {
	key := g.project(f)
	users := g.users(f)
	loc := g.cfg.Location()

	day := g.now().AddDate(0, 0, -1)
	if f.DateFrom != nil {
		day = *f.DateFrom
	}
	window := metrics.DayWindow(day, loc)

	data := DailyData{
		ProjectKey: key,
		BaseURL:    g.baseURL,
		Date:       window.From,
	}

	steps := len(users) + 2
	for i, user := range users {
		tr.Step(0, 80, i+1, steps, fmt.Sprintf("Анализ %s...", user))

		jql := jira.NewQuery(jira.Project(key), jira.AssigneeIs(user)).String()
		issues, err := g.issues.GetAll(ctx, jql)
		if err != nil {
			return "", fmt.Errorf("loading issues of %s: %w", user, err)
		}

		a := DailyActivity{User: user, Name: user}
		if len(issues) > 0 && issues[0].Fields.Assignee != nil && issues[0].Fields.Assignee.DisplayName != "" {
			a.Name = issues[0].Fields.Assignee.DisplayName
		}
		for _, is := range issues {
			if window.Contains(is.Fields.Updated.Time) {
				a.Updated = append(a.Updated, is)
			}
			if window.Contains(is.Fields.Created.Time) {
				a.Created = append(a.Created, is)
			}
		}

		set := g.worklogs.FetchIssues(ctx, issues, DailyWorklogIssues)
		if n := len(set.Failed()); n > 0 {
			log.Warn().Str("user", user).Int("failed", n).Msg("some worklogs unavailable")
		}
		a.Time = metrics.CollectTime(capIssues(issues, DailyWorklogIssues), set, window, []string{user}, loc)
		data.Activities = append(data.Activities, a)

		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	data.GeneratedAt = g.now()
	if g.advisor.Enabled() {
		tr.Report(85, "Получение советов от LLM...")
		data.Advice = g.ask(ctx, Daily, dailyPrompt(data), log)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tr.Report(95, "Генерация отчета...")
	return RenderDaily(data), nil
}

func (g *Generator) weekly(ctx context.Context, f Filters, tr *progress.Tracker, log zerolog.Logger) (string, error) {
	key := g.project(f)
	users := g.users(f)
	loc := g.cfg.Location()
	now := g.now()

	var window metrics.Window
	updated := jira.UpdatedWithin(7)
	if f.DateFrom != nil {
		to := now
		if f.DateTo != nil {
			to = *f.DateTo
		}
		window = metrics.SpanWindow(*f.DateFrom, to, loc)
		updated = jira.UpdatedSince(window.From)
	} else {
		window = metrics.SpanWindow(now.AddDate(0, 0, -7), now, loc)
	}

	tr.Report(10, "Загрузка задач...")
	jql := jira.NewQuery(jira.Project(key), jira.AssigneeIn(users), updated).String()
	issues, err := g.issues.GetAll(ctx, jql)
	if err != nil {
		return "", fmt.Errorf("loading updated issues: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tr.Report(30, "Анализ статистики...")
	data := WeeklyData{
		ProjectKey: key,
		BaseURL:    g.baseURL,
		From:       window.From,
		To:         window.To,
		Updated:    issues,
	}
	for _, is := range issues {
		if isCompletedName(is.StatusName()) {
			data.Completed = append(data.Completed, is)
		}
		if !is.Fields.Created.Before(window.From) {
			data.Created++
		}
	}

	tr.Report(50, "Анализ worklogs...")
	set := g.worklogs.FetchIssues(ctx, issues, WeeklyWorklogIssues)
	if n := len(set.Failed()); n > 0 {
		log.Warn().Int("failed", n).Msg("some worklogs unavailable")
	}
	data.Time = metrics.CollectTime(capIssues(issues, WeeklyWorklogIssues), set, window, users, loc)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data.GeneratedAt = g.now()
	if g.advisor.Enabled() {
		tr.Report(70, "Анализ от LLM...")
		data.Advice = g.ask(ctx, Weekly, weeklyPrompt(data), log)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tr.Report(90, "Генерация отчета...")
	return RenderWeekly(data), nil
}

func isCompletedName(status string) bool {
	s := strings.ToLower(status)
	for _, marker := range []string{"done", "closed", "готово"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func (g *Generator) timeReport(ctx context.Context, f Filters, tr *progress.Tracker, log zerolog.Logger) (string, error) {
	key := g.project(f)
	users := g.users(f)
	loc := g.cfg.Location()
	now := g.now()

	window := metrics.Window{From: now.AddDate(0, 0, -timeDefaultDays), To: now}
	if f.DateFrom != nil {
		window.From = metrics.DayWindow(*f.DateFrom, loc).From
	}
	if f.DateTo != nil {
		window.To = metrics.DayWindow(*f.DateTo, loc).To
	}

	tr.Report(10, "Загрузка задач...")
	base := jira.NewQuery(jira.Project(key), jira.AssigneeIn(users))
	jql := jira.NewQuery(jira.Project(key), jira.AssigneeIn(users), jira.WorklogDateFrom(window.From.In(loc))).String()

	issues, err := g.issues.GetAll(ctx, jql)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().Err(err).Msg("worklogDate query rejected, falling back to all assigned issues")
		issues, err = g.issues.GetAll(ctx, base.String())
		if err != nil {
			return "", fmt.Errorf("loading issues with worklogs: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tr.Report(30, "Анализ worklogs...")
	issues = capIssues(issues, TimeWorklogIssues)
	set := make(jira.WorklogSet, len(issues))
	for start := 0; start < len(issues); start += timeBatch {
		end := start + timeBatch
		if end > len(issues) {
			end = len(issues)
		}
		for k, r := range g.worklogs.FetchIssues(ctx, issues[start:end], 0) {
			set[k] = r
		}
		tr.Step(30, 80, end, len(issues), fmt.Sprintf("Обработка %d/%d...", end, len(issues)))

		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	if n := len(set.Failed()); n > 0 {
		log.Warn().Int("failed", n).Msg("some worklogs unavailable")
	}

	data := TimeData{
		ProjectKey: key,
		BaseURL:    g.baseURL,
		From:       window.From,
		To:         window.To,
		Time:       metrics.CollectTime(issues, set, window, users, loc),
	}

	data.GeneratedAt = g.now()
	if g.advisor.Enabled() {
		tr.Report(82, "Анализ от LLM...")
		data.Advice = g.ask(ctx, Time, timePrompt(data), log)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tr.Report(85, "Генерация отчета...")
	return RenderTime(data), nil
}

func capIssues(issues []jira.Issue, limit int) []jira.Issue {
	if limit > 0 && len(issues) > limit {
		return issues[:limit]
	}
	return issues
}
