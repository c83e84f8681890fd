package bot

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"task-manager/internal/model"
	"task-manager/internal/repository"
	"task-manager/internal/service"
)

func (b *Bot) startNewTaskConversation(msg *tgbotapi.Message) error {
	if _, ok := b.currentUser(msg.Chat.ID); !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	b.setConversation(msg.Chat.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Membuat task baru.\n<b>Langkah 1:</b> apa judulnya?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	state := b.getConversation(chatID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, model.MsgTitleRequired+". Apa judulnya?", cancelKeyboard())
		}
		state.draft.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(chatID, "✏️ Tambahkan deskripsi singkat (atau tekan «Lewati»).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.draft.Description = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(chatID, "🏷 Pilih kategori (atau «Lewati» untuk Personal).", categoryKeyboard())
	case stageCategory:
		if !isSkipInput(text) {
			c, ok := parseCategoryInput(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, service.MsgInvalidCategory+". Pilih salah satu tombol.", categoryKeyboard())
			}
			state.draft.Category = string(c)
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(chatID, "❗ Pilih prioritas (atau «Lewati» untuk medium).", priorityKeyboard())
	case stagePriority:
		if !isSkipInput(text) {
			p, ok := parsePriorityInput(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Prioritas tidak dikenal. Pilih salah satu tombol.", priorityKeyboard())
			}
			state.draft.Priority = string(p)
		}
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(chatID, "⏰ Tenggat dalam format <code>2025-11-30</code> (atau «Lewati»).", skipKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			due, err := parseDueDate(text, b.now().Location())
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Tanggal tidak dikenali. Gunakan format <code>2025-11-30</code> atau «Lewati».", skipKeyboard())
			}
			state.draft.DueDate = &due
		}
		err := b.finishTaskCreation(ctx, chatID, state.draft)
		b.clearConversation(chatID)
		return err
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "Dialog direset. Coba lagi dengan /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, draft service.TaskDraft) error {
	user, ok := b.currentUser(chatID)
	if !ok {
		return b.sendText(chatID, loginHint)
	}

	resp := b.app.TaskService.CreateTask(ctx, user.ID, draft)
	if !resp.Success {
		return b.sendText(chatID, "❌ Gagal menyimpan task: "+escape(resp.Error))
	}
	task := resp.Data

	var summary strings.Builder
	summary.WriteString(fmt.Sprintf("✅ <b>%s</b>\n", resp.Message))
	summary.WriteString(service.FormatTask(task, b.now()))
	if err := b.sendText(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendTaskList(chatID, user, service.TaskQuery{View: service.ViewPending}, "Task belum selesai")
}

func (b *Bot) handleListTasks(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	query, title, ok := parseTaskQuery(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Filter tidak dikenal. Gunakan all, pending, completed, high atau nama kategori.")
	}
	return b.sendTaskList(msg.Chat.ID, user, query, title)
}

func (b *Bot) sendTaskList(chatID int64, user *model.User, query service.TaskQuery, title string) error {
	resp := b.app.TaskService.GetTasks(user.ID, query)
	if !resp.Success {
		return b.sendText(chatID, escape(resp.Error))
	}
	return b.sendTasks(chatID, "📋 <b>"+escape(title)+"</b>", resp.Data, "Belum ada task. Tambahkan dengan /newtask.")
}

// sendTasks shows a numbered list with toggle and delete buttons per task.
func (b *Bot) sendTasks(chatID int64, header string, tasks []*model.Task, empty string) error {
	if len(tasks) == 0 {
		return b.sendText(chatID, empty)
	}
	b.rememberList(chatID, tasks)

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		if i == maxListed {
			break
		}
		toggle := fmt.Sprintf("✅ %d · %s", i+1, shortTitle(task.Title(), 24))
		if task.IsCompleted() {
			toggle = fmt.Sprintf("↩️ %d · %s", i+1, shortTitle(task.Title(), 24))
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggle, cbTogglePrefix+task.ID()),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID()),
		))
	}

	msg := tgbotapi.NewMessage(chatID, formatTaskList(header, tasks, b.now()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) handleView(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, "Format: /view &lt;no&gt;")
	}
	resp := b.app.TaskService.GetTask(user.ID, b.resolveTaskRef(msg.Chat.ID, ref))
	if !resp.Success {
		return b.sendText(msg.Chat.ID, escape(resp.Error))
	}

	assignee := resp.Data.AssigneeID()
	if u, found := b.app.Users.FindByID(assignee); found {
		assignee = u.DisplayName()
	}
	return b.sendText(msg.Chat.ID, formatTaskDetail(resp.Data, assignee, b.now()))
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, "Format: /done &lt;no&gt;")
	}
	return b.toggleTask(ctx, msg.Chat.ID, user, b.resolveTaskRef(msg.Chat.ID, ref))
}

func (b *Bot) toggleTask(ctx context.Context, chatID int64, user *model.User, taskID string) error {
	resp := b.app.TaskService.ToggleTaskStatus(ctx, user.ID, taskID)
	if !resp.Success {
		return b.sendText(chatID, escape(resp.Error))
	}
	title := escape(resp.Data.Title())
	if resp.Data.IsCompleted() {
		return b.sendText(chatID, fmt.Sprintf("✅ Task «%s» selesai.", title))
	}
	return b.sendText(chatID, fmt.Sprintf("↩️ Task «%s» dibuka kembali.", title))
}

func (b *Bot) handleDelete(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, "Format: /delete &lt;no&gt;")
	}
	return b.askDeleteConfirmation(msg.Chat.ID, user, b.resolveTaskRef(msg.Chat.ID, ref))
}

func (b *Bot) askDeleteConfirmation(chatID int64, user *model.User, taskID string) error {
	resp := b.app.TaskService.GetTask(user.ID, taskID)
	if !resp.Success {
		return b.sendText(chatID, escape(resp.Error))
	}
	if resp.Data.OwnerID() != user.ID {
		return b.sendText(chatID, service.MsgAccessDenied)
	}
	b.setConfirmation(chatID, resp.Data.ID())
	text := fmt.Sprintf("Hapus task «%s»?", escape(resp.Data.Title()))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, taskID string) error {
	chatID := msg.Chat.ID
	switch {
	case isConfirmInput(msg.Text):
		b.clearConfirmation(chatID)
		user, ok := b.currentUser(chatID)
		if !ok {
			return b.sendText(chatID, loginHint)
		}
		resp := b.app.TaskService.DeleteTask(ctx, user.ID, taskID)
		if !resp.Success {
			return b.sendText(chatID, escape(resp.Error))
		}
		return b.sendText(chatID, fmt.Sprintf("🗑 %s: «%s».", resp.Message, escape(resp.Data.Title())))
	case isCancelInput(msg.Text):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "Penghapusan dibatalkan.")
	default:
		return b.sendWithReplyMarkup(chatID, "Konfirmasi atau batalkan penghapusan task.", confirmKeyboard())
	}
}

// updateByRef runs the shared part of the single-field edit commands.
func (b *Bot) updateByRef(ctx context.Context, msg *tgbotapi.Message, usage string, build func(user *model.User, arg string) (repository.TaskUpdate, string)) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	ref, arg := splitRef(msg.CommandArguments())
	if ref == "" || arg == "" {
		return b.sendText(msg.Chat.ID, "Format: "+usage)
	}

	upd, problem := build(user, arg)
	if problem != "" {
		return b.sendText(msg.Chat.ID, escape(problem))
	}
	resp := b.app.TaskService.UpdateTask(ctx, user.ID, b.resolveTaskRef(msg.Chat.ID, ref), upd)
	if !resp.Success {
		return b.sendText(msg.Chat.ID, escape(resp.Error))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✏️ %s\n%s", resp.Message, service.FormatTask(resp.Data, b.now())))
}

func (b *Bot) handleNote(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateByRef(ctx, msg, "/note &lt;no&gt; &lt;teks&gt;", func(_ *model.User, arg string) (repository.TaskUpdate, string) {
		return repository.TaskUpdate{AddNote: &arg}, ""
	})
}

func (b *Bot) handleTag(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateByRef(ctx, msg, "/tag &lt;no&gt; &lt;tag&gt; (awali dengan - untuk menghapus)", func(_ *model.User, arg string) (repository.TaskUpdate, string) {
		if tag, remove := strings.CutPrefix(arg, "-"); remove {
			return repository.TaskUpdate{RemoveTags: strings.Fields(tag)}, ""
		}
		return repository.TaskUpdate{AddTags: strings.Fields(arg)}, ""
	})
}

func (b *Bot) handleAssign(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateByRef(ctx, msg, "/assign &lt;no&gt; &lt;username&gt;", func(_ *model.User, arg string) (repository.TaskUpdate, string) {
		target, found := b.app.Users.FindByUsername(arg)
		if !found {
			return repository.TaskUpdate{}, service.MsgAssigneeMissing
		}
		return repository.TaskUpdate{AssigneeID: &target.ID}, ""
	})
}

func (b *Bot) handleSetCategory(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateByRef(ctx, msg, "/category &lt;no&gt; &lt;kategori&gt;", func(_ *model.User, arg string) (repository.TaskUpdate, string) {
		c, ok := parseCategoryInput(arg)
		if !ok {
			return repository.TaskUpdate{}, service.MsgInvalidCategory
		}
		value := string(c)
		return repository.TaskUpdate{Category: &value}, ""
	})
}

func (b *Bot) handleSetPriority(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateByRef(ctx, msg, "/priority &lt;no&gt; &lt;low|medium|high|urgent&gt;", func(_ *model.User, arg string) (repository.TaskUpdate, string) {
		p, ok := parsePriorityInput(arg)
		if !ok {
			return repository.TaskUpdate{}, "Prioritas tidak dikenal"
		}
		value := string(p)
		return repository.TaskUpdate{Priority: &value}, ""
	})
}

func (b *Bot) handleSetDue(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateByRef(ctx, msg, "/due &lt;no&gt; &lt;YYYY-MM-DD|hapus&gt;", func(_ *model.User, arg string) (repository.TaskUpdate, string) {
		if strings.EqualFold(arg, "hapus") || arg == "-" {
			return repository.TaskUpdate{ClearDueDate: true}, ""
		}
		due, err := parseDueDate(arg, b.now().Location())
		if err != nil {
			return repository.TaskUpdate{}, "Tanggal tidak dikenali, gunakan format 2025-11-30"
		}
		return repository.TaskUpdate{DueDate: &due}, ""
	})
}

func (b *Bot) handleLogHours(ctx context.Context, msg *tgbotapi.Message) error {
	return b.updateByRef(ctx, msg, "/hours &lt;no&gt; &lt;jam&gt;", func(_ *model.User, arg string) (repository.TaskUpdate, string) {
		hours, err := strconv.ParseFloat(strings.ReplaceAll(arg, ",", "."), 64)
		if err != nil || hours <= 0 || math.IsInf(hours, 0) || math.IsNaN(hours) {
			return repository.TaskUpdate{}, "Jumlah jam harus angka positif"
		}
		return repository.TaskUpdate{LogHours: hours}, ""
	})
}

func (b *Bot) handleSearch(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	query := strings.TrimSpace(msg.CommandArguments())
	if query == "" {
		return b.sendText(msg.Chat.ID, "Format: /search &lt;teks&gt;")
	}
	resp := b.app.TaskService.SearchTasks(user.ID, query)
	if !resp.Success {
		return b.sendText(msg.Chat.ID, escape(resp.Error))
	}
	return b.sendTasks(msg.Chat.ID, fmt.Sprintf("🔎 <b>Hasil pencarian «%s»</b>", escape(query)), resp.Data, "Tidak ada task yang cocok.")
}

func (b *Bot) handleOverdue(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	resp := b.app.TaskService.GetOverdueTasks(user.ID)
	if !resp.Success {
		return b.sendText(msg.Chat.ID, escape(resp.Error))
	}
	return b.sendTasks(msg.Chat.ID, "⚠️ <b>Task terlambat</b>", resp.Data, "Tidak ada task terlambat. 🎉")
}

func (b *Bot) handleDueSoon(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	days, _ := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	resp := b.app.TaskService.GetTasksDueSoon(user.ID, days)
	if !resp.Success {
		return b.sendText(msg.Chat.ID, escape(resp.Error))
	}
	return b.sendTasks(msg.Chat.ID, "⏳ <b>Segera jatuh tempo</b>", resp.Data, "Tidak ada task yang segera jatuh tempo.")
}

func (b *Bot) handleStats(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	resp := b.app.TaskService.GetTaskStats(user.ID)
	if !resp.Success {
		return b.sendText(msg.Chat.ID, escape(resp.Error))
	}
	stats := resp.Data

	var builder strings.Builder
	builder.WriteString("📊 <b>Statistik task</b>\n")
	builder.WriteString(fmt.Sprintf("• Total: %d\n• Selesai: %d\n• Belum selesai: %d\n• Terlambat: %d\n", stats.Total, stats.Completed, stats.Pending, stats.Overdue))
	if stats.Total > 0 {
		builder.WriteString(fmt.Sprintf("• Progres: %d%%\n", stats.Completed*100/stats.Total))
	}
	builder.WriteString("\n<b>Per status</b>\n")
	for _, s := range model.Statuses() {
		builder.WriteString(fmt.Sprintf("• %s: %d\n", statusLabel(s), stats.ByStatus[s]))
	}
	builder.WriteString("\n<b>Per prioritas</b>\n")
	for _, p := range model.Priorities() {
		builder.WriteString(fmt.Sprintf("• %s: %d\n", p, stats.ByPriority[p]))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleCategories(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	resp := b.app.TaskService.GetCategoryStats(user.ID)
	if !resp.Success {
		return b.sendText(msg.Chat.ID, escape(resp.Error))
	}

	var builder strings.Builder
	builder.WriteString("📂 <b>Kategori</b>\n")
	for _, option := range b.app.TaskService.GetAvailableCategories().Data {
		s := resp.Data.ByCategory[option.Value]
		builder.WriteString(fmt.Sprintf("• %s <code>%s</code>: %d task, %d selesai", escape(option.Label), option.Value, s.Total, s.Completed))
		if s.Overdue > 0 {
			builder.WriteString(fmt.Sprintf(", %d terlambat", s.Overdue))
		}
		builder.WriteByte('\n')
	}

	var used []string
	for _, usage := range resp.Data.MostUsed {
		if usage.Count > 0 {
			used = append(used, fmt.Sprintf("%s (%d)", escape(usage.DisplayName), usage.Count))
		}
	}
	if len(used) > 0 {
		builder.WriteString("\n⭐ <b>Paling sering:</b> " + strings.Join(used, ", "))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleExport(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	name, payload, err := b.app.ExportService.Export(user.ID, b.now())
	if err != nil {
		log.WithError(err).Error("export")
		return b.sendText(msg.Chat.ID, "Gagal mengekspor data.")
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{Name: name, Bytes: payload})
	doc.Caption = "📦 Data berhasil diekspor"
	_, err = b.out.Send(doc)
	return err
}

func (b *Bot) handleReport(msg *tgbotapi.Message) error {
	user, ok := b.currentUser(msg.Chat.ID)
	if !ok {
		return b.sendText(msg.Chat.ID, loginHint)
	}
	text, hasItems := b.app.ReminderService.Summary(user.ID, b.now())
	if !hasItems {
		return b.sendText(msg.Chat.ID, "🎉 Tidak ada task terlambat atau segera jatuh tempo.")
	}
	return b.sendText(msg.Chat.ID, text)
}
