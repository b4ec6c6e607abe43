package report

import (
	"fmt"
	"strings"

	"github.com/kiracore/jirapulse/internal/metrics"
)

func planningPrompt(d PlanningData) string {
	var b strings.Builder
	b.WriteString("Проанализируй состояние проекта и дай рекомендации по планированию.\n\n")
	fmt.Fprintf(&b, "**Проект:** %s\n", d.ProjectKey)
	fmt.Fprintf(&b, "**Всего активных задач:** %d\n", len(d.Issues))
	fmt.Fprintf(&b, "**Заблокированных:** %d\n\n", len(d.Blocked))

	b.WriteString("**По статусам:**\n")
	for _, s := range d.Statuses {
		fmt.Fprintf(&b, "- %s: %d\n", s.Status, s.Count)
	}

	b.WriteString("\n**Задачи:**\n")
	for i := range d.Issues {
		if i == 20 {
			break
		}
		is := &d.Issues[i]
		fmt.Fprintf(&b, "- %s: %s (%s)\n", is.Key, is.Fields.Summary, is.StatusName())
	}

	b.WriteString("\nДай 3-5 практических рекомендаций по планированию. Кратко, на русском.")
	return b.String()
}

func dailyPrompt(d DailyData) string {
	var b strings.Builder
	b.WriteString("Проанализируй ежедневную активность команды и дай краткие практические советы для дейлика.\n\n")
	fmt.Fprintf(&b, "**Дата:** %s\n", FormatDate(d.Date))
	fmt.Fprintf(&b, "**Проект:** %s\n\n", d.ProjectKey)
	b.WriteString("**Активность команды за день:**\n")

	for i, a := range d.Activities {
		fmt.Fprintf(&b, "\n%d. **%s**:\n", i+1, a.Name)
		fmt.Fprintf(&b, "   - Обновлено задач: %d\n", len(a.Updated))
		fmt.Fprintf(&b, "   - Создано задач: %d\n", len(a.Created))
		fmt.Fprintf(&b, "   - Списанное время: %s\n", FormatDuration(a.Seconds()))
		for j := range a.Updated {
			if j == 3 {
				break
			}
			fmt.Fprintf(&b, "   - %s: %s\n", a.Updated[j].Key, a.Updated[j].Fields.Summary)
		}
	}

	b.WriteString("\nДай краткие (3-5 пунктов) практические советы для дейлика. Ответ на русском, краткий.")
	return b.String()
}

func weeklyPrompt(d WeeklyData) string {
	total := 0
	if d.Time != nil {
		total = d.Time.Total
	}

	var b strings.Builder
	b.WriteString("Проанализируй недельный прогресс команды.\n\n")
	fmt.Fprintf(&b, "**Проект:** %s\n", d.ProjectKey)
	fmt.Fprintf(&b, "**Период:** %s - %s\n\n", FormatDate(d.From), FormatDate(d.To))
	b.WriteString("**Статистика:**\n")
	fmt.Fprintf(&b, "- Обновлено задач: %d\n", len(d.Updated))
	fmt.Fprintf(&b, "- Завершено: %d\n", len(d.Completed))
	fmt.Fprintf(&b, "- Создано: %d\n", d.Created)
	fmt.Fprintf(&b, "- Списано времени: %s\n\n", FormatDuration(total))

	b.WriteString("**По участникам:**\n")
	if d.Time != nil {
		for _, u := range d.Time.Users() {
			fmt.Fprintf(&b, "- %s: %s\n", u.User, FormatDuration(u.Seconds))
		}
	}

	b.WriteString("\nДай краткую оценку прогресса и 3-5 рекомендаций на следующую неделю. На русском.")
	return b.String()
}

func timePrompt(d TimeData) string {
	var b strings.Builder
	b.WriteString("Проанализируй распределение списанного времени в команде.\n\n")
	fmt.Fprintf(&b, "**Проект:** %s\n", d.ProjectKey)
	fmt.Fprintf(&b, "**Период:** %s - %s\n", FormatDate(d.From), FormatDate(d.To))

	if d.Time != nil {
		total := d.Time.UserTotal()
		fmt.Fprintf(&b, "**Всего списано:** %s\n\n", FormatDuration(total))
		b.WriteString("**По участникам:**\n")
		for _, u := range d.Time.UsersByTime() {
			fmt.Fprintf(&b, "- %s: %s (%d%%)\n", u.User, FormatDuration(u.Seconds), metrics.Percent(u.Seconds, total))
		}
	}

	b.WriteString("\nДай 3-5 кратких наблюдений о загрузке команды. На русском.")
	return b.String()
}
