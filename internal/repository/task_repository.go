package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/storage"
)

// TasksKey is the storage key holding the serialized task collection.
const TasksKey = "tasks"

// DefaultMostUsedLimit applies when GetMostUsedCategories gets a non-positive limit.
const DefaultMostUsedLimit = 5

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	OwnerID     string
	model.TaskOptions
}

// TaskUpdate lists the changes applied by Update. Nil fields are left alone.
type TaskUpdate struct {
	Title          *string
	Category       *string
	Status         *string
	AddNote        *string
	Description    *string
	Priority       *string
	DueDate        *time.Time
	ClearDueDate   bool
	AssigneeID     *string
	AddTags        []string
	RemoveTags     []string
	EstimatedHours *float64
	LogHours       float64
}

// CategoryStats counts tasks in one category.
type CategoryStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
}

// CategoryUsage is one entry of GetMostUsedCategories.
type CategoryUsage struct {
	Category    model.Category `json:"category"`
	Count       int            `json:"count"`
	DisplayName string         `json:"displayName"`
}

// TaskRepository owns the in-memory task collection and writes it through to storage
// after every change.
type TaskRepository struct {
	store storage.Store

	mu    sync.RWMutex
	tasks map[string]*model.Task
	order []string
}

// NewTaskRepository loads the stored collection. A stored record that fails
// validation aborts the load.
func NewTaskRepository(ctx context.Context, store storage.Store) (*TaskRepository, error) {
	r := &TaskRepository{
		store: store,
		tasks: make(map[string]*model.Task),
	}

	records := []model.TaskRecord{}
	if _, err := store.Load(ctx, TasksKey, &records); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	for _, rec := range records {
		task, err := model.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("load task %q: %w", rec.ID, err)
		}
		r.put(task)
	}
	return r, nil
}

func (r *TaskRepository) put(task *model.Task) {
	if _, exists := r.tasks[task.ID()]; !exists {
		r.order = append(r.order, task.ID())
	}
	r.tasks[task.ID()] = task
}

// Create validates and stores a new task.
func (r *TaskRepository) Create(ctx context.Context, in TaskInput) (*model.Task, error) {
	task, err := model.NewTask(in.Title, in.Description, in.OwnerID, in.TaskOptions)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(task)
	if err := r.saveLocked(ctx); err != nil {
		return nil, err
	}
	return task.Clone(), nil
}

// FindAll returns every task in insertion order.
func (r *TaskRepository) FindAll() []*model.Task {
	return r.collect(func(*model.Task) bool { return true })
}

// FindByID returns false when no task has the given id.
func (r *TaskRepository) FindByID(id string) (*model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	return task.Clone(), true
}

func (r *TaskRepository) FindByOwner(ownerID string) []*model.Task {
	return r.collect(func(t *model.Task) bool { return t.OwnerID() == ownerID })
}

// FindByCategory does not validate category; unknown values match nothing.
func (r *TaskRepository) FindByCategory(category model.Category) []*model.Task {
	return r.collect(func(t *model.Task) bool { return t.Category() == category })
}

// Update applies the changes to a working copy and stores it only when every
// change succeeded, so a ValidationError leaves the stored task as it was.
func (r *TaskRepository) Update(ctx context.Context, id string, upd TaskUpdate) (*model.Task, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[id]
	if !ok {
		return nil, false, nil
	}

	task := current.Clone()
	if err := applyUpdate(task, upd); err != nil {
		return nil, true, err
	}

	r.tasks[id] = task
	if err := r.saveLocked(ctx); err != nil {
		return nil, true, err
	}
	return task.Clone(), true, nil
}

func applyUpdate(task *model.Task, upd TaskUpdate) error {
	if upd.Title != nil {
		if err := task.UpdateTitle(*upd.Title); err != nil {
			return err
		}
	}
	if upd.Category != nil {
		if err := task.UpdateCategory(*upd.Category); err != nil {
			return err
		}
	}
	if upd.Status != nil {
		task.UpdateStatus(*upd.Status)
	}
	if upd.AddNote != nil {
		task.AddNote(*upd.AddNote)
	}
	if upd.Description != nil {
		task.UpdateDescription(*upd.Description)
	}
	if upd.Priority != nil {
		task.UpdatePriority(*upd.Priority)
	}
	switch {
	case upd.ClearDueDate:
		task.SetDueDate(nil)
	case upd.DueDate != nil:
		task.SetDueDate(upd.DueDate)
	}
	if upd.AssigneeID != nil {
		task.AssignTo(*upd.AssigneeID)
	}
	for _, tag := range upd.AddTags {
		task.AddTag(tag)
	}
	for _, tag := range upd.RemoveTags {
		task.RemoveTag(tag)
	}
	if upd.EstimatedHours != nil {
		task.SetEstimatedHours(*upd.EstimatedHours)
	}
	if upd.LogHours > 0 {
		task.LogHours(upd.LogHours)
	}
	return nil
}

// Delete reports whether a task was removed. Unknown ids do not touch storage.
func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return false, nil
	}
	delete(r.tasks, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })

	if err := r.saveLocked(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// GetCategoryStats counts tasks per category, scoped to ownerID unless it is empty.
// Every category is present in the result.
func (r *TaskRepository) GetCategoryStats(ownerID string) map[model.Category]CategoryStats {
	stats := make(map[model.Category]CategoryStats, len(model.Categories()))
	for _, c := range model.Categories() {
		stats[c] = CategoryStats{}
	}

	for _, task := range r.scoped(ownerID) {
		s, ok := stats[task.Category()]
		if !ok {
			continue
		}
		s.Total++
		if task.IsCompleted() {
			s.Completed++
		} else {
			s.Pending++
		}
		if task.IsOverdue() {
			s.Overdue++
		}
		stats[task.Category()] = s
	}
	return stats
}

// GetMostUsedCategories ranks categories by task count. Ties keep enumeration order.
func (r *TaskRepository) GetMostUsedCategories(ownerID string, limit int) []CategoryUsage {
	if limit <= 0 {
		limit = DefaultMostUsedLimit
	}
	stats := r.GetCategoryStats(ownerID)

	usage := make([]CategoryUsage, 0, len(stats))
	for _, c := range model.Categories() {
		usage = append(usage, CategoryUsage{
			Category:    c,
			Count:       stats[c].Total,
			DisplayName: c.DisplayName(),
		})
	}
	sort.SliceStable(usage, func(i, j int) bool {
		return usage[i].Count > usage[j].Count
	})
	if len(usage) > limit {
		usage = usage[:limit]
	}
	return usage
}

// Records returns the serialized form of every task, for export.
func (r *TaskRepository) Records() []model.TaskRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recordsLocked()
}

func (r *TaskRepository) recordsLocked() []model.TaskRecord {
	records := make([]model.TaskRecord, 0, len(r.order))
	for _, id := range r.order {
		records = append(records, r.tasks[id].Record())
	}
	return records
}

func (r *TaskRepository) saveLocked(ctx context.Context) error {
	if err := r.store.Save(ctx, TasksKey, r.recordsLocked()); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func (r *TaskRepository) scoped(ownerID string) []*model.Task {
	if ownerID == "" {
		return r.FindAll()
	}
	return r.FindByOwner(ownerID)
}

func (r *TaskRepository) collect(match func(*model.Task) bool) []*model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Task, 0, len(r.order))
	for _, id := range r.order {
		task := r.tasks[id]
		if match(task) {
			out = append(out, task.Clone())
		}
	}
	return out
}
