package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

// maxListed keeps list messages under Telegram's 4096 character limit.
const maxListed = 25

const loginHint = service.MsgLoginRequired + ". Gunakan /login &lt;username&gt; atau /register &lt;username&gt;."

var statusLabels = map[model.Status]string{
	model.StatusPending:    "Menunggu",
	model.StatusInProgress: "Dikerjakan",
	model.StatusBlocked:    "Terhambat",
	model.StatusCompleted:  "Selesai",
	model.StatusCancelled:  "Dibatalkan",
}

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// formatTaskList numbers tasks from 1 so they can be referenced by position.
func formatTaskList(header string, tasks []*model.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s (%d)\n\n", header, len(tasks)))
	for i, task := range tasks {
		if i == maxListed {
			b.WriteString(fmt.Sprintf("… dan %d task lainnya\n", len(tasks)-maxListed))
			break
		}
		b.WriteString(fmt.Sprintf("<b>%d.</b> %s", i+1, service.FormatTask(task, now)))
	}
	return strings.TrimSpace(b.String())
}

func formatTaskDetail(task *model.Task, assignee string, now time.Time) string {
	var b strings.Builder
	b.WriteString(service.FormatTask(task, now))
	b.WriteString(fmt.Sprintf("\n• <b>Status:</b> %s\n", statusLabel(task.Status())))
	b.WriteString(fmt.Sprintf("• <b>Prioritas:</b> %s\n", task.Priority()))
	b.WriteString(fmt.Sprintf("• <b>Ditugaskan ke:</b> %s\n", escape(assignee)))
	if task.EstimatedHours() > 0 || task.ActualHours() > 0 {
		b.WriteString(fmt.Sprintf("• <b>Jam:</b> %s / %s\n", formatHours(task.ActualHours()), formatHours(task.EstimatedHours())))
	}
	b.WriteString(fmt.Sprintf("• <b>Dibuat:</b> %s\n", task.CreatedAt().In(now.Location()).Format("2006-01-02 15:04")))
	if completed := task.CompletedAt(); completed != nil {
		b.WriteString(fmt.Sprintf("• <b>Selesai:</b> %s\n", completed.In(now.Location()).Format("2006-01-02 15:04")))
	}
	if notes := task.Notes(); len(notes) > 0 {
		b.WriteString("\n🗒 <b>Catatan</b>\n")
		for _, note := range notes {
			b.WriteString(fmt.Sprintf("• %s <i>(%s)</i>\n", escape(note.Content), note.CreatedAt.In(now.Location()).Format("2006-01-02")))
		}
	}
	b.WriteString(fmt.Sprintf("\n<code>%s</code>", escape(task.ID())))
	return b.String()
}

func statusLabel(s model.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + " jam"
}

func lookupRef(list []string, ref string) string {
	ref = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ref), "#"))
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(list) {
		return list[n-1]
	}
	return ref
}

// parseTaskQuery understands the /tasks filters: all, pending, completed, high or a
// category value or display name.
func parseTaskQuery(arg string) (service.TaskQuery, string, bool) {
	arg = strings.TrimSpace(strings.ToLower(arg))
	switch arg {
	case "", service.ViewAll, "semua":
		return service.TaskQuery{View: service.ViewAll}, "Semua task", true
	case service.ViewPending, "aktif":
		return service.TaskQuery{View: service.ViewPending}, "Task belum selesai", true
	case service.ViewCompleted, "selesai":
		return service.TaskQuery{View: service.ViewCompleted}, "Task selesai", true
	case service.ViewHigh, "penting":
		return service.TaskQuery{View: service.ViewHigh}, "Task prioritas tinggi", true
	}
	if c, ok := parseCategoryInput(arg); ok {
		return service.TaskQuery{Category: string(c)}, "Kategori " + c.DisplayName(), true
	}
	return service.TaskQuery{}, "", false
}

// parseCategoryInput accepts a category value or its display name, ignoring case.
func parseCategoryInput(text string) (model.Category, bool) {
	text = strings.TrimSpace(text)
	for _, c := range model.Categories() {
		if strings.EqualFold(text, string(c)) || strings.EqualFold(text, c.DisplayName()) {
			return c, true
		}
	}
	return "", false
}

func parsePriorityInput(text string) (model.Priority, bool) {
	text = strings.TrimSpace(strings.ToLower(text))
	for _, p := range model.Priorities() {
		if text == string(p) {
			return p, true
		}
	}
	return "", false
}

// parseDueDate reads YYYY-MM-DD (due at the end of that day) or YYYY-MM-DD HH:MM
// in loc.
func parseDueDate(text string, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	if t, err := time.ParseInLocation("2006-01-02 15:04", text, loc); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation("2006-01-02", text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("tanggal tidak dikenali: %q", text)
	}
	return day.Add(24*time.Hour - time.Minute), nil
}

// splitRef separates the leading task reference from the rest of the arguments.
func splitRef(args string) (string, string) {
	args = strings.TrimSpace(args)
	ref, rest, _ := strings.Cut(args, " ")
	return ref, strings.TrimSpace(rest)
}
