package notify

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/net/html"

	"github.com/mr1hm/go-radar-alerts/internal/models"
)

const (
	timeLayout  = "15:04:05 02-01-2006"
	adminSource = "Admin"
)

var moscow = mustLoadLocation("Europe/Moscow")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %s: %v", name, err))
	}
	return loc
}

var hazardLabels = map[models.HazardType]string{
	models.HazardDrone:         "атаки БПЛА",
	models.HazardAir:           "воздушной атаки",
	models.HazardMissile:       "ракетной атаки",
	models.HazardSurfaceVessel: "атаки безэкипажного катера (БЭК)",
}

var severityLabels = map[models.Severity]string{
	models.SeverityHigh:     "Высокий",
	models.SeverityElevated: "Средний",
	models.SeverityClear:    "Отбой/Нет угрозы",
}

func HazardLabel(h models.HazardType) string {
	if l, ok := hazardLabels[h]; ok {
		return l
	}
	return string(h)
}

func SeverityLabel(s models.Severity) string {
	if l, ok := severityLabels[s]; ok {
		return l
	}
	return string(s)
}

// FormatTime renders t in Moscow time the way every message shows it.
func FormatTime(t time.Time) string {
	return t.In(moscow).Format(timeLayout)
}

func sourceLabel(source string) string {
	if source == adminSource {
		return source
	}
	return "@" + html.EscapeString(source)
}

// Render builds the HTML notification for one transition. The text does not
// depend on the recipient. Free text is escaped since messages are sent with
// the HTML parse mode.
func Render(t models.Transition) string {
	var b strings.Builder
	if t.Severity.IsClear() {
		b.WriteString("<b>✅ ОТБОЙ тревоги</b>\n")
		fmt.Fprintf(&b, "Регион: %s\n", html.EscapeString(string(t.Region)))
		fmt.Fprintf(&b, "Тип угрозы: %s\n", HazardLabel(t.HazardType))
		fmt.Fprintf(&b, "Статус: %s\n", SeverityLabel(t.Severity))
	} else {
		b.WriteString("<b>⚠️ ВНИМАНИЕ!</b>\n")
		fmt.Fprintf(&b, "Угроза %s\n", HazardLabel(t.HazardType))
		fmt.Fprintf(&b, "Регион: %s\n", html.EscapeString(string(t.Region)))
		fmt.Fprintf(&b, "Уровень: %s\n", SeverityLabel(t.Severity))
	}
	fmt.Fprintf(&b, "Источник: %s\n", sourceLabel(t.Source))
	fmt.Fprintf(&b, "Время: <code>%s</code>\n", FormatTime(t.At))

	if t.Comment != "" {
		fmt.Fprintf(&b, "\n<pre>💬 Комментарий:\n<blockquote>%s</blockquote></pre>", html.EscapeString(t.Comment))
	}
	return b.String()
}

func RenderBroadcast(text string) string {
	return "<b>🔔 ВНИМАНИЕ!</b>\n💬 Сообщение от администратора:\n<blockquote>" + html.EscapeString(text) + "</blockquote>"
}

// RenderReport is the message admins get for a queued user report.
func RenderReport(userID int64, submitted time.Time, reportID, text string) string {
	return fmt.Sprintf("🆔 User ID: <a href='tg://user?id=%d'>%d</a>\n⌛️ Sending time: <code>%s</code>\n🔖 Report ID: <code>%s</code>\n\n<blockquote>%s</blockquote>",
		userID, userID, FormatTime(submitted), html.EscapeString(reportID), html.EscapeString(text))
}

func RenderBan(banned bool, reason string) string {
	if reason == "" {
		reason = "<не указано>"
	}
	reason = html.EscapeString(reason)
	if banned {
		return "⚠️ Вы заблокированы администратором. Причина: " + reason
	}
	return "⚠️ Вы разблокированы администратором. Причина: " + reason
}
