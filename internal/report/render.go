package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/kiracore/jirapulse/internal/metrics"
)

// Footer ends every report.
const Footer = "---\n*Отчет сгенерирован автоматически*\n"

// GeneratedAtPrefix starts the only line that varies between two runs
// over the same data.
const GeneratedAtPrefix = "**Сгенерировано:** "

// Table row limits. Summary figures always use the full data.
const (
	planningUserRows = 15
	dailyRows        = 10
	weeklyCompleted  = 15
	timeDayRows      = 14
	timeDetailRows   = 50
)

// PlanningData is the input of the planning report.
type PlanningData struct {
	ProjectKey  string
	BaseURL     string
	GeneratedAt time.Time
	Users       []string
	Issues      []jira.Issue
	Statuses    []metrics.StatusCount
	Blocked     []jira.Issue
	Advice      string
}

// DailyActivity is one user's activity in the daily report.
type DailyActivity struct {
	User    string
	Name    string
	Updated []jira.Issue
	Created []jira.Issue
	Time    *metrics.TimeTotals
}

// Seconds is the time logged on the user's issues during the day.
func (a DailyActivity) Seconds() int {
	if a.Time == nil {
		return 0
	}
	return a.Time.Total
}

// DailyData is the input of the daily report.
type DailyData struct {
	ProjectKey  string
	BaseURL     string
	GeneratedAt time.Time
	Date        time.Time
	Activities  []DailyActivity
	Advice      string
}

// WeeklyData is the input of the weekly report.
type WeeklyData struct {
	ProjectKey  string
	BaseURL     string
	GeneratedAt time.Time
	From        time.Time
	To          time.Time
	Updated     []jira.Issue
	Completed   []jira.Issue
	Created     int
	Time        *metrics.TimeTotals
	Advice      string
}

// TimeData is the input of the time report.
type TimeData struct {
	ProjectKey  string
	BaseURL     string
	GeneratedAt time.Time
	From        time.Time
	To          time.Time
	Time        *metrics.TimeTotals
	Advice      string
}

// Render formats data, which must be the data type matching kind.
func Render(kind Kind, data any) (string, error) {
	switch d := data.(type) {
	case PlanningData:
		if kind == Planning {
			return RenderPlanning(d), nil
		}
	case DailyData:
		if kind == Daily {
			return RenderDaily(d), nil
		}
	case WeeklyData:
		if kind == Weekly {
			return RenderWeekly(d), nil
		}
	case TimeData:
		if kind == Time {
			return RenderTime(d), nil
		}
	default:
		if _, err := ParseKind(string(kind)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("cannot render %T as %s report", data, kind)
}

type writer struct {
	strings.Builder
	baseURL string
}

func (w *writer) f(format string, args ...any) {
	fmt.Fprintf(&w.Builder, format, args...)
}

func (w *writer) line(s string) {
	w.WriteString(s)
	w.WriteString("\n")
}

func (w *writer) link(key string) string {
	return fmt.Sprintf("[%s](%s/browse/%s)", key, w.baseURL, key)
}

func (w *writer) generatedAt(t time.Time) {
	w.line(GeneratedAtPrefix + FormatDateTime(t))
}

func (w *writer) advice(title, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	w.f("## 💡 %s\n\n%s\n\n", title, text)
}

// cell makes a value safe for a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func statusOrDash(is *jira.Issue) string {
	if s := is.StatusName(); s != "" {
		return s
	}
	return "-"
}

// RenderPlanning renders the planning report.
func RenderPlanning(d PlanningData) string {
	w := &writer{baseURL: d.BaseURL}

	w.line("# Отчет по планированию\n")
	w.f("**Проект:** %s\n", d.ProjectKey)
	w.generatedAt(d.GeneratedAt)
	w.line("")

	w.line("## 📊 Общая статистика\n")
	w.f("- **Всего активных задач:** %d\n", len(d.Issues))
	w.f("- **Заблокированных:** %d\n\n", len(d.Blocked))

	w.line("## 📈 По статусам\n")
	w.line("| Статус | Количество |\n| :--- | :--- |")
	for _, s := range d.Statuses {
		w.f("| %s | %d |\n", cell(s.Status), s.Count)
	}
	w.line("")

	w.line("## 👥 По участникам\n")
	for _, user := range d.Users {
		w.f("### %s\n\n", user)

		var tasks []jira.Issue
		for _, is := range d.Issues {
			if strings.EqualFold(is.AssigneeIdentity(), user) {
				tasks = append(tasks, is)
			}
		}
		if len(tasks) == 0 {
			w.line("Нет активных задач.\n")
			continue
		}

		w.line("| Задача | Статус | Название |\n| :--- | :--- | :--- |")
		for i := range tasks {
			if i == planningUserRows {
				break
			}
			w.f("| %s | %s | %s |\n", w.link(tasks[i].Key), cell(statusOrDash(&tasks[i])), cell(tasks[i].Fields.Summary))
		}
		w.line("")
	}

	if len(d.Blocked) > 0 {
		w.line("## ⚠️ Заблокированные задачи\n")
		for _, is := range d.Blocked {
			w.f("- %s - %s\n", w.link(is.Key), is.Fields.Summary)
		}
		w.line("")
	}

	w.advice("Рекомендации", d.Advice)
	w.WriteString(Footer)
	return w.String()
}

// RenderDaily renders the daily standup report.
func RenderDaily(d DailyData) string {
	w := &writer{baseURL: d.BaseURL}

	w.line("# Ежедневный отчет для дейлика\n")
	w.f("**Дата:** %s\n", FormatDate(d.Date))
	w.f("**Проект:** %s\n", d.ProjectKey)
	w.generatedAt(d.GeneratedAt)
	w.line("")

	updated, created, seconds := 0, 0, 0
	for _, a := range d.Activities {
		updated += len(a.Updated)
		created += len(a.Created)
		seconds += a.Seconds()
	}

	w.line("## 📊 Сводка\n")
	w.f("- **Обновлено задач:** %d\n", updated)
	w.f("- **Создано задач:** %d\n", created)
	w.f("- **Всего списано времени:** %s\n\n", FormatDuration(seconds))

	w.line("## 👥 Активность по участникам\n")
	for _, a := range d.Activities {
		w.f("### %s\n\n", a.Name)

		if len(a.Updated) > 0 {
			w.f("**Обновленные задачи (%d):**\n\n", len(a.Updated))
			w.line("| Задача | Статус | Название |\n| :--- | :--- | :--- |")
			for i := range a.Updated {
				if i == dailyRows {
					break
				}
				is := &a.Updated[i]
				w.f("| %s | %s | %s |\n", w.link(is.Key), cell(statusOrDash(is)), cell(is.Fields.Summary))
			}
			w.line("")
		}

		if a.Time != nil && len(a.Time.Entries) > 0 {
			w.f("**Списанное время: %s**\n\n", FormatDuration(a.Seconds()))
			w.line("| Задача | Время |\n| :--- | :--- |")
			for i, e := range a.Time.Entries {
				if i == dailyRows {
					break
				}
				w.f("| %s | %s |\n", w.link(e.IssueKey), FormatDuration(e.Seconds))
			}
			w.line("")
		}
	}

	w.advice("Советы для дейлика", d.Advice)
	w.WriteString(Footer)
	return w.String()
}

// RenderWeekly renders the weekly progress report.
func RenderWeekly(d WeeklyData) string {
	w := &writer{baseURL: d.BaseURL}

	total := 0
	if d.Time != nil {
		total = d.Time.Total
	}

	w.line("# Недельный отчет\n")
	w.f("**Проект:** %s\n", d.ProjectKey)
	w.f("**Период:** %s - %s\n", FormatDate(d.From), FormatDate(d.To))
	w.generatedAt(d.GeneratedAt)
	w.line("")

	w.line("## 📊 Статистика\n")
	w.line("| Метрика | Значение |\n| :--- | :--- |")
	w.f("| Обновлено задач | %d |\n", len(d.Updated))
	w.f("| Завершено | %d |\n", len(d.Completed))
	w.f("| Создано | %d |\n", d.Created)
	w.f("| Списано времени | %s |\n\n", FormatDuration(total))

	w.line("## 👥 По участникам\n")
	w.line("| Участник | Время |\n| :--- | :--- |")
	if d.Time != nil {
		for _, u := range d.Time.Users() {
			w.f("| %s | %s |\n", u.User, FormatDuration(u.Seconds))
		}
	}
	w.line("")

	if len(d.Completed) > 0 {
		w.line("## ✅ Завершенные задачи\n")
		for i, is := range d.Completed {
			if i == weeklyCompleted {
				break
			}
			w.f("- %s - %s\n", w.link(is.Key), is.Fields.Summary)
		}
		w.line("")
	}

	w.advice("Анализ и рекомендации", d.Advice)
	w.WriteString(Footer)
	return w.String()
}

// RenderTime renders the time tracking report.
func RenderTime(d TimeData) string {
	w := &writer{baseURL: d.BaseURL}
	t := d.Time
	if t == nil {
		t = &metrics.TimeTotals{}
	}
	total := t.UserTotal()

	w.line("# Отчет о времени\n")
	w.f("**Проект:** %s\n", d.ProjectKey)
	w.f("**Период:** %s - %s\n", FormatDate(d.From), FormatDate(d.To))
	w.f("**Всего списано:** %s\n", FormatDuration(total))
	w.generatedAt(d.GeneratedAt)
	w.line("")

	w.line("## 👥 По участникам\n")
	w.line("| Участник | Время | % |\n| :--- | :--- | :--- |")
	for _, u := range t.UsersByTime() {
		w.f("| %s | %s | %d%% |\n", u.User, FormatDuration(u.Seconds), metrics.Percent(u.Seconds, total))
	}
	w.line("")

	w.line("## 📆 По дням\n")
	w.line("| Дата | Время |\n| :--- | :--- |")
	for i, day := range t.Days() {
		if i == timeDayRows {
			break
		}
		w.f("| %s | %s |\n", day.Date, FormatDuration(day.Seconds))
	}
	w.line("")

	w.line("## 📝 Детализация\n")
	w.line("| Дата | Задача | Участник | Время |\n| :--- | :--- | :--- | :--- |")
	for i, e := range t.EntriesByDate() {
		if i == timeDetailRows {
			break
		}
		w.f("| %s | %s | %s | %s |\n", e.Date, w.link(e.IssueKey), e.User, FormatDuration(e.Seconds))
	}
	w.line("")

	w.advice("Рекомендации", d.Advice)
	w.WriteString(Footer)
	return w.String()
}
