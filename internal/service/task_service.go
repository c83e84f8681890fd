package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

const (
	MsgLoginRequired   = "User harus login terlebih dahulu"
	MsgTaskNotFound    = "Task tidak ditemukan"
	MsgAccessDenied    = "Anda tidak memiliki akses ke task ini"
	MsgAssigneeMissing = "User yang di-assign tidak ditemukan"
	MsgInvalidCategory = "Kategori tidak valid"
	MsgTaskCreated     = "Task berhasil dibuat"
	MsgTaskUpdated     = "Task berhasil diperbarui"
	MsgTaskDeleted     = "Task berhasil dihapus"
	MsgStorageFailed   = "Gagal menyimpan data"
)

// DefaultDueSoonDays is the due-soon window used when none is configured.
const DefaultDueSoonDays = 3

// Task list views.
const (
	ViewAll       = "all"
	ViewPending   = "pending"
	ViewCompleted = "completed"
	ViewHigh      = "high"
)

// TaskDraft represents data required to create a task for the calling user.
type TaskDraft struct {
	Title       string
	Description string
	model.TaskOptions
}

// TaskQuery narrows GetTasks. Empty fields match everything.
type TaskQuery struct {
	View     string
	Status   string
	Priority string
	Category string
	Tag      string
}

type CategoryTasks struct {
	Category    model.Category `json:"category"`
	DisplayName string         `json:"displayName"`
	Tasks       []*model.Task  `json:"tasks"`
}

type CategoryReport struct {
	ByCategory map[model.Category]repository.CategoryStats `json:"byCategory"`
	MostUsed   []repository.CategoryUsage                  `json:"mostUsed"`
}

type CategoryOption struct {
	Value model.Category `json:"value"`
	Label string         `json:"label"`
}

// TaskService is the controller over the task repository. Every call names the
// acting user explicitly.
type TaskService struct {
	tasks       *repository.TaskRepository
	users       *repository.UserRepository
	dueSoonDays int
	now         func() time.Time
}

func NewTaskService(tasks *repository.TaskRepository, users *repository.UserRepository, dueSoonDays int) *TaskService {
	if dueSoonDays <= 0 {
		dueSoonDays = DefaultDueSoonDays
	}
	return &TaskService{tasks: tasks, users: users, dueSoonDays: dueSoonDays, now: time.Now}
}

func (s *TaskService) CreateTask(ctx context.Context, userID string, draft TaskDraft) Response[*model.Task] {
	if !s.loggedIn(userID) {
		return fail[*model.Task](MsgLoginRequired)
	}
	if !s.assigneeExists(draft.AssigneeID) {
		return fail[*model.Task](MsgAssigneeMissing)
	}

	task, err := s.tasks.Create(ctx, repository.TaskInput{
		Title:       draft.Title,
		Description: draft.Description,
		OwnerID:     userID,
		TaskOptions: draft.TaskOptions,
	})
	if err != nil {
		return failure[*model.Task]("create task", err)
	}
	log.WithFields(log.Fields{"task": task.ID(), "user": userID}).Info("task created")
	return ok(task, MsgTaskCreated)
}

// GetTasks lists tasks the user owns or is assigned to, newest first.
func (s *TaskService) GetTasks(userID string, q TaskQuery) Response[[]*model.Task] {
	if !s.loggedIn(userID) {
		return fail[[]*model.Task](MsgLoginRequired)
	}

	filter := repository.TaskFilter{
		VisibleTo: userID,
		Status:    model.Status(q.Status),
		Priority:  model.Priority(q.Priority),
		Tag:       q.Tag,
	}
	switch q.View {
	case ViewPending:
		filter.Completed = boolPtr(false)
	case ViewCompleted:
		filter.Completed = boolPtr(true)
	case ViewHigh:
		filter.HighPriority = true
	}
	if q.Category != "" {
		c, err := model.ParseCategory(q.Category)
		if err != nil {
			return fail[[]*model.Task](MsgInvalidCategory)
		}
		filter.Category = c
	}

	tasks := s.tasks.Filter(filter)
	newestFirst(tasks)
	return okList(tasks, "")
}

func (s *TaskService) GetTask(userID, taskID string) Response[*model.Task] {
	task, msg := s.visibleTask(userID, taskID)
	if msg != "" {
		return fail[*model.Task](msg)
	}
	return ok(task, "")
}

func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, upd repository.TaskUpdate) Response[*model.Task] {
	if _, msg := s.visibleTask(userID, taskID); msg != "" {
		return fail[*model.Task](msg)
	}
	if upd.AssigneeID != nil && !s.assigneeExists(*upd.AssigneeID) {
		return fail[*model.Task](MsgAssigneeMissing)
	}

	task, found, err := s.tasks.Update(ctx, taskID, upd)
	switch {
	case err != nil:
		return failure[*model.Task]("update task", err)
	case !found:
		return fail[*model.Task](MsgTaskNotFound)
	}
	return ok(task, MsgTaskUpdated)
}

// ToggleTaskStatus flips a task between completed and pending.
func (s *TaskService) ToggleTaskStatus(ctx context.Context, userID, taskID string) Response[*model.Task] {
	task, msg := s.visibleTask(userID, taskID)
	if msg != "" {
		return fail[*model.Task](msg)
	}
	next := string(model.StatusCompleted)
	if task.IsCompleted() {
		next = string(model.StatusPending)
	}
	return s.UpdateTask(ctx, userID, taskID, repository.TaskUpdate{Status: &next})
}

// DeleteTask is reserved to the owner. Data holds the removed task.
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) Response[*model.Task] {
	task, msg := s.visibleTask(userID, taskID)
	if msg != "" {
		return fail[*model.Task](msg)
	}
	if task.OwnerID() != userID {
		return fail[*model.Task](MsgAccessDenied)
	}

	removed, err := s.tasks.Delete(ctx, taskID)
	switch {
	case err != nil:
		return failure[*model.Task]("delete task", err)
	case !removed:
		return fail[*model.Task](MsgTaskNotFound)
	}
	log.WithFields(log.Fields{"task": taskID, "user": userID}).Info("task deleted")
	return ok(task, MsgTaskDeleted)
}

func (s *TaskService) SearchTasks(userID, query string) Response[[]*model.Task] {
	if !s.loggedIn(userID) {
		return fail[[]*model.Task](MsgLoginRequired)
	}
	return okList(s.tasks.Search(userID, query), "")
}

// GetTaskStats aggregates over the tasks the user owns.
func (s *TaskService) GetTaskStats(userID string) Response[repository.TaskStats] {
	if !s.loggedIn(userID) {
		return fail[repository.TaskStats](MsgLoginRequired)
	}
	return ok(s.tasks.GetTaskStats(userID), "")
}

func (s *TaskService) GetOverdueTasks(userID string) Response[[]*model.Task] {
	if !s.loggedIn(userID) {
		return fail[[]*model.Task](MsgLoginRequired)
	}
	return okList(s.tasks.FindOverdue(userID, s.now()), "")
}

// GetTasksDueSoon uses the configured window when days is not positive.
func (s *TaskService) GetTasksDueSoon(userID string, days int) Response[[]*model.Task] {
	if !s.loggedIn(userID) {
		return fail[[]*model.Task](MsgLoginRequired)
	}
	if days <= 0 {
		days = s.dueSoonDays
	}
	return okList(s.tasks.FindDueSoon(userID, days, s.now()), "")
}

func (s *TaskService) GetTasksByCategory(userID, category string) Response[CategoryTasks] {
	if !s.loggedIn(userID) {
		return fail[CategoryTasks](MsgLoginRequired)
	}
	c, err := model.ParseCategory(category)
	if err != nil {
		return fail[CategoryTasks](MsgInvalidCategory)
	}

	tasks := s.tasks.Filter(repository.TaskFilter{VisibleTo: userID, Category: c})
	resp := ok(CategoryTasks{Category: c, DisplayName: c.DisplayName(), Tasks: tasks}, "")
	resp.Count = len(tasks)
	return resp
}

func (s *TaskService) UpdateTaskCategory(ctx context.Context, userID, taskID, category string) Response[*model.Task] {
	if !model.Category(category).Valid() {
		return fail[*model.Task](MsgInvalidCategory)
	}
	return s.UpdateTask(ctx, userID, taskID, repository.TaskUpdate{Category: &category})
}

func (s *TaskService) GetCategoryStats(userID string) Response[CategoryReport] {
	if !s.loggedIn(userID) {
		return fail[CategoryReport](MsgLoginRequired)
	}
	return ok(CategoryReport{
		ByCategory: s.tasks.GetCategoryStats(userID),
		MostUsed:   s.tasks.GetMostUsedCategories(userID, repository.DefaultMostUsedLimit),
	}, "")
}

func (s *TaskService) GetAvailableCategories() Response[[]CategoryOption] {
	categories := model.Categories()
	options := make([]CategoryOption, 0, len(categories))
	for _, c := range categories {
		options = append(options, CategoryOption{Value: c, Label: c.DisplayName()})
	}
	return okList(options, "")
}

func (s *TaskService) loggedIn(userID string) bool {
	if userID == "" {
		return false
	}
	_, found := s.users.FindByID(userID)
	return found
}

// assigneeExists accepts an empty id, which means the owner.
func (s *TaskService) assigneeExists(userID string) bool {
	if userID == "" {
		return true
	}
	_, found := s.users.FindByID(userID)
	return found
}

// visibleTask returns the task or the message explaining why the user cannot see it.
func (s *TaskService) visibleTask(userID, taskID string) (*model.Task, string) {
	if !s.loggedIn(userID) {
		return nil, MsgLoginRequired
	}
	task, found := s.tasks.FindByID(taskID)
	if !found {
		return nil, MsgTaskNotFound
	}
	if !task.IsVisibleTo(userID) {
		return nil, MsgAccessDenied
	}
	return task, ""
}

// failure turns validation errors into their own message and hides storage errors
// behind a generic one.
func failure[T any](op string, err error) Response[T] {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return fail[T](ve.Message)
	}
	log.WithError(err).Errorf("%s failed", op)
	return fail[T](MsgStorageFailed)
}

// newestFirst sorts by createdAt descending; equal timestamps put later inserts first.
func newestFirst(tasks []*model.Task) {
	slices.Reverse(tasks)
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt().After(tasks[j].CreatedAt())
	})
}

func boolPtr(v bool) *bool { return &v }
