package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"task-manager/internal/app"
	"task-manager/internal/model"
	"task-manager/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageCategory
	stagePriority
	stageDueDate
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

type conversationState struct {
	stage conversationStage
	draft service.TaskDraft
}

// sender is the part of the Telegram API the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api *tgbotapi.BotAPI
	out sender
	app *app.App
	now func() time.Time

	mu            sync.Mutex
	conversations map[int64]*conversationState
	confirmations map[int64]string
	// lists remembers the task ids of the last list shown in each chat so
	// commands can refer to tasks by their position.
	lists map[int64][]string
}

func New(token string, a *app.App) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Infof("bot authorized on account %s", api.Self.UserName)

	b := newBot(api, a)
	b.api = api
	return b, nil
}

func newBot(out sender, a *app.App) *Bot {
	return &Bot{
		out:           out,
		app:           a,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]string),
		lists:         make(map[int64][]string),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram api")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return ctx.Err()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.WithError(err).Error("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.WithError(err).Error("handle message")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Input dibatalkan.")
	}

	if msg.IsCommand() {
		log.WithFields(log.Fields{"chat": chatID, "command": msg.Command()}).Info("command received")
		return b.handleCommand(ctx, msg)
	}

	if taskID, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, msg, taskID)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(chatID, "Pesan tidak dikenali. Ketik /newtask untuk menambah task atau /help untuk daftar perintah.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "register":
		return b.handleRegister(ctx, msg)
	case "login":
		return b.handleLogin(ctx, msg)
	case "logout":
		return b.handleLogout(ctx, msg)
	case "users":
		return b.handleUsers(msg)
	case "newtask":
		return b.startNewTaskConversation(msg)
	case "tasks":
		return b.handleListTasks(msg)
	case "view":
		return b.handleView(msg)
	case "done":
		return b.handleToggle(ctx, msg)
	case "delete":
		return b.handleDelete(msg)
	case "note":
		return b.handleNote(ctx, msg)
	case "tag":
		return b.handleTag(ctx, msg)
	case "assign":
		return b.handleAssign(ctx, msg)
	case "category":
		return b.handleSetCategory(ctx, msg)
	case "priority":
		return b.handleSetPriority(ctx, msg)
	case "due":
		return b.handleSetDue(ctx, msg)
	case "hours":
		return b.handleLogHours(ctx, msg)
	case "search":
		return b.handleSearch(msg)
	case "overdue":
		return b.handleOverdue(msg)
	case "duesoon":
		return b.handleDueSoon(msg)
	case "stats":
		return b.handleStats(msg)
	case "categories":
		return b.handleCategories(msg)
	case "export":
		return b.handleExport(msg)
	case "report":
		return b.handleReport(msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input dibatalkan.")
	default:
		return b.sendText(msg.Chat.ID, "Perintah tidak dikenal. Lihat /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(msg)
	case strings.ToLower(menuLabelStats):
		return true, b.handleStats(msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.WithError(err).Warn("callback ack")
	}

	chatID := cb.Message.Chat.ID
	user, ok := b.currentUser(chatID)
	if !ok {
		return b.sendText(chatID, loginHint)
	}

	switch {
	case strings.HasPrefix(cb.Data, cbTogglePrefix):
		return b.toggleTask(ctx, chatID, user, strings.TrimPrefix(cb.Data, cbTogglePrefix))
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		return b.askDeleteConfirmation(chatID, user, strings.TrimPrefix(cb.Data, cbDeletePrefix))
	default:
		return nil
	}
}

// SendReports pushes a reminder summary to every logged-in chat that has
// overdue or due-soon tasks. It returns the number of messages sent.
func (b *Bot) SendReports(ctx context.Context) (int, error) {
	now := b.now()
	sent := 0
	for chatID, userID := range b.app.UserService.Sessions() {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		default:
		}
		text, ok := b.app.ReminderService.Summary(userID, now)
		if !ok {
			continue
		}
		if err := b.sendText(chatID, text); err != nil {
			log.WithError(err).WithField("chat", chatID).Warn("send report")
			continue
		}
		sent++
	}
	return sent, nil
}

func (b *Bot) currentUser(chatID int64) (*model.User, bool) {
	return b.app.UserService.CurrentUser(chatID)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) getConfirmation(chatID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	taskID, ok := b.confirmations[chatID]
	return taskID, ok
}

func (b *Bot) setConfirmation(chatID int64, taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = taskID
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func (b *Bot) rememberList(chatID int64, tasks []*model.Task) {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[chatID] = ids
}

// resolveTaskRef maps a list position from the last shown list to a task id.
// Anything else is taken as a task id.
func (b *Bot) resolveTaskRef(chatID int64, ref string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lookupRef(b.lists[chatID], ref)
}
