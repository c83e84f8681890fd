package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/app"
	"task-manager/internal/config"
	"task-manager/internal/model"
	"task-manager/internal/service"
	"task-manager/internal/storage"
)

const (
	chatAlice int64 = 1001
	chatBob   int64 = 1002
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) lastText() string {
	msg, ok := f.last().(tgbotapi.MessageConfig)
	if !ok {
		return ""
	}
	return msg.Text
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *fakeSender) {
	t.Helper()
	a, err := app.NewWithStore(context.Background(), config.Config{DueSoonDays: 3}, storage.NewMemory())
	require.NoError(t, err)
	out := &fakeSender{}
	return newBot(out, a), out
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		From: &tgbotapi.User{ID: chatID, FirstName: "Alice"},
		Text: text,
	}
}

func command(chatID int64, text string) *tgbotapi.Message {
	msg := textMessage(chatID, text)
	name, _, _ := strings.Cut(text, " ")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	return msg
}

func send(b *Bot, msg *tgbotapi.Message) {
	b.handleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func loginDemo(t *testing.T, b *Bot, chatID int64) *model.User {
	t.Helper()
	send(b, command(chatID, "/login "+service.DemoUsername))
	user, ok := b.currentUser(chatID)
	require.True(t, ok)
	return user
}

func createTask(t *testing.T, b *Bot, userID, title string, opts model.TaskOptions) *model.Task {
	t.Helper()
	resp := b.app.TaskService.CreateTask(context.Background(), userID, service.TaskDraft{Title: title, TaskOptions: opts})
	require.True(t, resp.Success, resp.Error)
	return resp.Data
}

func TestRegisterLoginLogout(t *testing.T) {
	b, out := newTestBot(t)

	send(b, command(chatAlice, "/register alice alice@example.com Alice Doe"))
	assert.Contains(t, out.lastText(), service.MsgRegistered)
	assert.Contains(t, out.lastText(), "Alice Doe")

	user, ok := b.currentUser(chatAlice)
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)

	send(b, command(chatAlice, "/register alice"))
	assert.Contains(t, out.lastText(), "Username sudah digunakan")

	send(b, command(chatAlice, "/logout"))
	assert.Contains(t, out.lastText(), service.MsgLoggedOut)
	_, ok = b.currentUser(chatAlice)
	assert.False(t, ok)

	send(b, command(chatAlice, "/login ALICE"))
	assert.Contains(t, out.lastText(), service.MsgLoggedIn)
	_, ok = b.currentUser(chatAlice)
	assert.True(t, ok)

	send(b, command(chatAlice, "/login ghost"))
	assert.Contains(t, out.lastText(), service.MsgUserNotFound)
}

func TestCommandsRequireLogin(t *testing.T) {
	b, out := newTestBot(t)

	for _, text := range []string{"/tasks", "/newtask", "/stats", "/export", "/done 1", "/search x"} {
		send(b, command(chatAlice, text))
		assert.Equal(t, loginHint, out.lastText(), text)
	}
}

func TestIgnoresGroupChats(t *testing.T) {
	b, out := newTestBot(t)

	msg := command(chatAlice, "/help")
	msg.Chat.Type = "group"
	send(b, msg)

	assert.Nil(t, out.last())
}

func TestNewTaskConversation(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)

	send(b, command(chatAlice, "/newtask"))
	send(b, textMessage(chatAlice, "Beli susu"))
	send(b, textMessage(chatAlice, btnSkip))
	send(b, textMessage(chatAlice, "Shopping"))
	send(b, textMessage(chatAlice, "high"))
	send(b, textMessage(chatAlice, "2030-01-15"))

	assert.False(t, b.hasConversation(chatAlice))
	tasks := b.app.Tasks.FindByOwner(user.ID)
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "Beli susu", task.Title())
	assert.Empty(t, task.Description())
	assert.Equal(t, model.CategoryShopping, task.Category())
	assert.Equal(t, model.PriorityHigh, task.Priority())
	require.NotNil(t, task.DueDate())
	assert.True(t, time.Date(2030, 1, 15, 23, 59, 0, 0, time.Local).Equal(*task.DueDate()))

	list, ok := out.last().(tgbotapi.MessageConfig)
	require.True(t, ok)
	markup, ok := list.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, cbTogglePrefix+task.ID(), *markup.InlineKeyboard[0][0].CallbackData)
}

func TestNewTaskConversationRejectsBadInput(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)

	send(b, command(chatAlice, "/newtask"))
	send(b, textMessage(chatAlice, "   "))
	assert.Contains(t, out.lastText(), model.MsgTitleRequired)

	send(b, textMessage(chatAlice, "Laporan"))
	send(b, textMessage(chatAlice, "bulanan"))
	send(b, textMessage(chatAlice, "astrology"))
	assert.Contains(t, out.lastText(), service.MsgInvalidCategory)
	assert.Equal(t, stageCategory, b.getConversation(chatAlice).stage)

	send(b, textMessage(chatAlice, "work"))
	send(b, textMessage(chatAlice, "sangat"))
	assert.Equal(t, stagePriority, b.getConversation(chatAlice).stage)

	send(b, textMessage(chatAlice, btnCancelDialog))
	assert.False(t, b.hasConversation(chatAlice))
	assert.Empty(t, b.app.Tasks.FindByOwner(user.ID))
}

func TestToggleByListPosition(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)
	first := createTask(t, b, user.ID, "first", model.TaskOptions{})
	second := createTask(t, b, user.ID, "second", model.TaskOptions{})

	send(b, command(chatAlice, "/tasks"))
	assert.Equal(t, []string{second.ID(), first.ID()}, b.lists[chatAlice])

	send(b, command(chatAlice, "/done 1"))
	assert.Contains(t, out.lastText(), "selesai")
	task, ok := b.app.Tasks.FindByID(second.ID())
	require.True(t, ok)
	assert.True(t, task.IsCompleted())

	send(b, command(chatAlice, "/done 1"))
	task, _ = b.app.Tasks.FindByID(second.ID())
	assert.False(t, task.IsCompleted())

	send(b, command(chatAlice, "/done 9"))
	assert.Contains(t, out.lastText(), service.MsgTaskNotFound)
}

func TestListFilters(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)
	createTask(t, b, user.ID, "gym", model.TaskOptions{Category: "health"})
	createTask(t, b, user.ID, "rapat", model.TaskOptions{Category: "work", Priority: "urgent"})

	send(b, command(chatAlice, "/tasks health"))
	assert.Contains(t, out.lastText(), "gym")
	assert.NotContains(t, out.lastText(), "rapat")

	send(b, command(chatAlice, "/tasks high"))
	assert.Contains(t, out.lastText(), "rapat")
	assert.NotContains(t, out.lastText(), "gym")

	send(b, command(chatAlice, "/tasks completed"))
	assert.Contains(t, out.lastText(), "Belum ada task")

	send(b, command(chatAlice, "/tasks bogus"))
	assert.Contains(t, out.lastText(), "Filter tidak dikenal")
}

func TestDeleteConfirmation(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)
	task := createTask(t, b, user.ID, "hapus aku", model.TaskOptions{})
	send(b, command(chatAlice, "/tasks"))

	send(b, command(chatAlice, "/delete 1"))
	assert.Contains(t, out.lastText(), "Hapus task")
	send(b, textMessage(chatAlice, "batal"))
	assert.Contains(t, out.lastText(), "dibatalkan")
	_, ok := b.app.Tasks.FindByID(task.ID())
	assert.True(t, ok)

	send(b, command(chatAlice, "/delete 1"))
	send(b, textMessage(chatAlice, "hmm"))
	_, pending := b.getConfirmation(chatAlice)
	assert.True(t, pending)

	send(b, textMessage(chatAlice, btnConfirm))
	assert.Contains(t, out.lastText(), service.MsgTaskDeleted)
	_, ok = b.app.Tasks.FindByID(task.ID())
	assert.False(t, ok)
	_, pending = b.getConfirmation(chatAlice)
	assert.False(t, pending)
}

func TestDeleteRequiresOwner(t *testing.T) {
	b, out := newTestBot(t)
	demo := loginDemo(t, b, chatAlice)
	send(b, command(chatBob, "/register bobby"))
	bob, ok := b.currentUser(chatBob)
	require.True(t, ok)

	task := createTask(t, b, demo.ID, "bersama", model.TaskOptions{AssigneeID: bob.ID})

	send(b, command(chatBob, "/delete "+task.ID()))
	assert.Contains(t, out.lastText(), service.MsgAccessDenied)
	_, pending := b.getConfirmation(chatBob)
	assert.False(t, pending)
}

func TestCallbackToggle(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)
	task := createTask(t, b, user.ID, "klik", model.TaskOptions{})

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: chatAlice},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatAlice, Type: "private"}},
		Data:    cbTogglePrefix + task.ID(),
	}})

	assert.Equal(t, 1, out.requests)
	updated, ok := b.app.Tasks.FindByID(task.ID())
	require.True(t, ok)
	assert.True(t, updated.IsCompleted())

	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-2",
		From:    &tgbotapi.User{ID: chatAlice},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatAlice, Type: "private"}},
		Data:    cbDeletePrefix + task.ID(),
	}})
	taskID, pending := b.getConfirmation(chatAlice)
	assert.True(t, pending)
	assert.Equal(t, task.ID(), taskID)
}

func TestEditCommands(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)
	task := createTask(t, b, user.ID, "edit", model.TaskOptions{DueDate: ptrTime(time.Now().Add(48 * time.Hour))})
	send(b, command(chatAlice, "/tasks"))

	send(b, command(chatAlice, "/note 1 sudah dicek"))
	send(b, command(chatAlice, "/tag 1 rumah kantor"))
	send(b, command(chatAlice, "/tag 1 -kantor"))
	send(b, command(chatAlice, "/priority 1 urgent"))
	send(b, command(chatAlice, "/category 1 Study & Learning"))
	send(b, command(chatAlice, "/due 1 hapus"))
	send(b, command(chatAlice, "/hours 1 2,5"))
	assert.Contains(t, out.lastText(), service.MsgTaskUpdated)

	updated, ok := b.app.Tasks.FindByID(task.ID())
	require.True(t, ok)
	require.Len(t, updated.Notes(), 1)
	assert.Equal(t, "sudah dicek", updated.Notes()[0].Content)
	assert.Equal(t, []string{"rumah"}, updated.Tags())
	assert.Equal(t, model.PriorityUrgent, updated.Priority())
	assert.Equal(t, model.CategoryStudy, updated.Category())
	assert.Nil(t, updated.DueDate())
	assert.InDelta(t, 2.5, updated.ActualHours(), 1e-9)

	send(b, command(chatAlice, "/assign 1 nobody"))
	assert.Contains(t, out.lastText(), service.MsgAssigneeMissing)
	send(b, command(chatAlice, "/category 1 astrology"))
	assert.Contains(t, out.lastText(), service.MsgInvalidCategory)
	send(b, command(chatAlice, "/hours 1 -3"))
	assert.Contains(t, out.lastText(), "angka positif")
	send(b, command(chatAlice, "/note 1"))
	assert.Contains(t, out.lastText(), "Format:")
}

func TestLogHoursRejectsNonFinite(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)
	task := createTask(t, b, user.ID, "jam", model.TaskOptions{})
	send(b, command(chatAlice, "/tasks"))

	for _, arg := range []string{"inf", "+Inf", "NaN"} {
		send(b, command(chatAlice, "/hours 1 "+arg))
		assert.Contains(t, out.lastText(), "angka positif", arg)
	}

	updated, ok := b.app.Tasks.FindByID(task.ID())
	require.True(t, ok)
	assert.Zero(t, updated.ActualHours())
	createTask(t, b, user.ID, "masih bisa disimpan", model.TaskOptions{})
}

func TestViewShowsAssignee(t *testing.T) {
	b, out := newTestBot(t)
	demo := loginDemo(t, b, chatAlice)
	send(b, command(chatBob, "/register bobby bob@example.com Bob Builder"))
	bob, _ := b.currentUser(chatBob)
	task := createTask(t, b, demo.ID, "lihat", model.TaskOptions{AssigneeID: bob.ID})

	send(b, command(chatBob, "/view "+task.ID()))
	assert.Contains(t, out.lastText(), "Bob Builder")
	assert.Contains(t, out.lastText(), task.ID())
}

func TestSearchStatsAndCategories(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)
	createTask(t, b, user.ID, "Bayar listrik", model.TaskOptions{Category: "finance"})
	createTask(t, b, user.ID, "Olahraga", model.TaskOptions{Category: "health", Status: "completed"})

	send(b, command(chatAlice, "/search listrik"))
	assert.Contains(t, out.lastText(), "Bayar listrik")
	send(b, command(chatAlice, "/search kucing"))
	assert.Contains(t, out.lastText(), "Tidak ada task yang cocok")

	send(b, command(chatAlice, "/stats"))
	assert.Contains(t, out.lastText(), "Total: 2")
	assert.Contains(t, out.lastText(), "Progres: 50%")

	send(b, command(chatAlice, "/categories"))
	assert.Contains(t, out.lastText(), "Finance &amp; Money")
	assert.Contains(t, out.lastText(), "Paling sering")
}

func TestExportSendsDocument(t *testing.T) {
	b, out := newTestBot(t)
	user := loginDemo(t, b, chatAlice)
	createTask(t, b, user.ID, "ekspor", model.TaskOptions{})

	send(b, command(chatAlice, "/export"))

	doc, ok := out.last().(tgbotapi.DocumentConfig)
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(file.Name, "task-manager-export-"))
	assert.Contains(t, string(file.Bytes), "ekspor")
}

func TestSendReports(t *testing.T) {
	b, out := newTestBot(t)
	demo := loginDemo(t, b, chatAlice)
	send(b, command(chatBob, "/register bobby"))
	createTask(t, b, demo.ID, "telat", model.TaskOptions{DueDate: ptrTime(time.Now().Add(-24 * time.Hour))})

	sent, err := b.SendReports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Contains(t, out.lastText(), "Pengingat Task")
	assert.Contains(t, out.lastText(), "telat")

	send(b, command(chatBob, "/report"))
	assert.Contains(t, out.lastText(), "Tidak ada task terlambat")
}

func TestSendReportsStopsOnCancelledContext(t *testing.T) {
	b, _ := newTestBot(t)
	demo := loginDemo(t, b, chatAlice)
	createTask(t, b, demo.ID, "telat", model.TaskOptions{DueDate: ptrTime(time.Now().Add(-time.Hour))})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent, err := b.SendReports(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sent)
}

func TestUnknownInput(t *testing.T) {
	b, out := newTestBot(t)

	send(b, command(chatAlice, "/frobnicate"))
	assert.Contains(t, out.lastText(), "Perintah tidak dikenal")

	send(b, textMessage(chatAlice, "halo"))
	assert.Contains(t, out.lastText(), "Pesan tidak dikenali")

	send(b, textMessage(chatAlice, menuLabelHelp))
	assert.Contains(t, out.lastText(), "/newtask")
	assert.NotEmpty(t, out.texts())
}

func ptrTime(t time.Time) *time.Time { return &t }
