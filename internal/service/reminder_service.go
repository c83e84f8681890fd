package service

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

const (
	iconOpen    = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
	iconDone    = "✅"
	dateLayout  = "2006-01-02"
)

// ReminderService builds human-readable summaries for scheduled notifications.
type ReminderService struct {
	tasks       *repository.TaskRepository
	dueSoonDays int
}

func NewReminderService(tasks *repository.TaskRepository, dueSoonDays int) *ReminderService {
	if dueSoonDays <= 0 {
		dueSoonDays = DefaultDueSoonDays
	}
	return &ReminderService{tasks: tasks, dueSoonDays: dueSoonDays}
}

// Summary lists the user's overdue tasks and those due within the window. The
// bool is false when there is nothing to report.
func (s *ReminderService) Summary(userID string, now time.Time) (string, bool) {
	overdue := s.tasks.FindOverdue(userID, now)
	dueSoon := s.tasks.FindDueSoon(userID, s.dueSoonDays, now)
	if len(overdue) == 0 && len(dueSoon) == 0 {
		return "", false
	}
	byDueDate(overdue)
	byDueDate(dueSoon)

	var builder strings.Builder
	builder.WriteString("📋 <b>Pengingat Task</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	builder.WriteString(fmt.Sprintf("%s <b>Terlambat</b> (%d)\n", iconOverdue, len(overdue)))
	if len(overdue) == 0 {
		builder.WriteString("- tidak ada\n")
	}
	for _, task := range overdue {
		builder.WriteString(FormatTask(task, now))
	}

	builder.WriteString(fmt.Sprintf("\n%s <b>Segera jatuh tempo</b> (%d hari, %d)\n", iconDue, s.dueSoonDays, len(dueSoon)))
	if len(dueSoon) == 0 {
		builder.WriteString("- tidak ada\n")
	}
	for _, task := range dueSoon {
		builder.WriteString(FormatTask(task, now))
	}

	return strings.TrimSpace(builder.String()), true
}

// FormatTask renders one task as an HTML block for chat messages.
func FormatTask(task *model.Task, now time.Time) string {
	var sb strings.Builder

	icon := iconOpen
	due := task.DueDate()
	switch {
	case task.IsCompleted():
		icon = iconDone
	case due != nil && now.After(*due):
		icon = iconOverdue
	case due != nil && due.Sub(now) <= 48*time.Hour:
		icon = iconDue
	}

	sb.WriteString(fmt.Sprintf("%s %s <i>(%s)</i>", icon, html.EscapeString(task.Title()), html.EscapeString(task.CategoryDisplayName())))
	if task.IsHighPriority() {
		sb.WriteString(fmt.Sprintf(" ❗%s", task.Priority()))
	}

	if due != nil {
		d := due.In(now.Location())
		if now.After(d) && !task.IsCompleted() {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s, <b>terlambat</b>", d.Format(dateLayout)))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s, sisa %d hari", d.Format(dateLayout), daysLeft(d, now)))
		}
	}

	if task.Description() != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(task.Description())))
	}
	if tags := task.Tags(); len(tags) > 0 {
		sb.WriteString(fmt.Sprintf("\n   🏷 %s", html.EscapeString(strings.Join(tags, ", "))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func daysLeft(due, now time.Time) int {
	days := int(math.Ceil(due.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// byDueDate sorts tasks with the earliest due date first; tasks without one go last.
func byDueDate(tasks []*model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate(), tasks[j].DueDate()
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
