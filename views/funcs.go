package views

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/Dosada05/contest-hub/countdown"
	"github.com/Dosada05/contest-hub/models"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Funcs хелперы, доступные во всех шаблонах.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money":         Money,
		"ago":           humanize.Time,
		"date":          FormatDate,
		"datetime":      FormatDateTime,
		"datetimeLocal": DateTimeLocal,
		"ordinal":       humanize.Ordinal,
		"comma":         func(n int) string { return humanize.Comma(int64(n)) },
		"bytes":         func(n int64) string { return humanize.Bytes(uint64(n)) },
		"statusLabel":   StatusLabel,
		"statusClass":   StatusClass,
		"countdown":     CountdownDisplay,
		"pad2":          func(n int64) string { return fmt.Sprintf("%02d", n) },
		"initial":       Initial,
		"add":           func(a, b int) int { return a + b },
		"lower":         strings.ToLower,
		"percent":       func(n int) string { return fmt.Sprintf("%d%%", n) },
		"isRole":        func(r models.Role, want string) bool { return string(r) == want },
	}
}

// Money форматирует сумму в долларах с разделителями тысяч.
func Money(d decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006 15:04 MST")
}

// DateTimeLocal is the value format of <input type="datetime-local">.
func DateTimeLocal(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04")
}

// StatusLabel подпись статуса модерации. Подтверждённые конкурсы показываются как активные.
func StatusLabel(s models.ContestStatus) string {
	switch s {
	case models.ContestConfirmed:
		return "Active"
	case models.ContestPending:
		return "Pending"
	case models.ContestRejected:
		return "Rejected"
	}
	return string(s)
}

func StatusClass(s models.ContestStatus) string {
	switch s {
	case models.ContestConfirmed:
		return "badge-success"
	case models.ContestRejected:
		return "badge-error"
	}
	return "badge-warning"
}

func CountdownDisplay(t countdown.TimeRemaining) string {
	return t.String()
}

// Initial is the avatar placeholder letter.
func Initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	return strings.ToUpper(string([]rune(name)[0]))
}
