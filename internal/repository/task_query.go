package repository

import (
	"strings"
	"time"

	"task-manager/internal/model"
)

// TaskFilter narrows Filter results. Zero values mean "any".
type TaskFilter struct {
	// VisibleTo keeps tasks owned by or assigned to this user.
	VisibleTo string
	OwnerID   string
	Status    model.Status
	// Completed filters on IsCompleted when set.
	Completed    *bool
	Priority     model.Priority
	HighPriority bool
	Category     model.Category
	Tag          string
	OverdueOnly  bool
}

func (f TaskFilter) matches(t *model.Task) bool {
	switch {
	case f.VisibleTo != "" && !t.IsVisibleTo(f.VisibleTo):
		return false
	case f.OwnerID != "" && t.OwnerID() != f.OwnerID:
		return false
	case f.Status != "" && t.Status() != f.Status:
		return false
	case f.Completed != nil && t.IsCompleted() != *f.Completed:
		return false
	case f.Priority != "" && t.Priority() != f.Priority:
		return false
	case f.HighPriority && !t.IsHighPriority():
		return false
	case f.Category != "" && t.Category() != f.Category:
		return false
	case f.Tag != "" && !t.HasTag(f.Tag):
		return false
	case f.OverdueOnly && !t.IsOverdue():
		return false
	}
	return true
}

// TaskStats aggregates a set of tasks.
type TaskStats struct {
	Total      int                    `json:"total"`
	Completed  int                    `json:"completed"`
	Pending    int                    `json:"pending"`
	Overdue    int                    `json:"overdue"`
	ByStatus   map[model.Status]int   `json:"byStatus"`
	ByPriority map[model.Priority]int `json:"byPriority"`
}

// Filter returns tasks matching every set field of f, in insertion order.
func (r *TaskRepository) Filter(f TaskFilter) []*model.Task {
	return r.collect(f.matches)
}

// Search matches query case-insensitively against title, description and tags of
// the tasks visible to userID (all tasks when userID is empty). A blank query
// matches nothing.
func (r *TaskRepository) Search(userID, query string) []*model.Task {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []*model.Task{}
	}
	filter := TaskFilter{VisibleTo: userID}
	return r.collect(func(t *model.Task) bool {
		return filter.matches(t) && matchesQuery(t, query)
	})
}

// FindOverdue lists tasks visible to userID that are overdue at now.
func (r *TaskRepository) FindOverdue(userID string, now time.Time) []*model.Task {
	filter := TaskFilter{VisibleTo: userID}
	return r.collect(func(t *model.Task) bool {
		return filter.matches(t) && t.IsOverdueAt(now)
	})
}

// FindDueSoon lists open tasks visible to userID that fall due within the next
// days days. Overdue tasks are not included.
func (r *TaskRepository) FindDueSoon(userID string, days int, now time.Time) []*model.Task {
	limit := now.AddDate(0, 0, days)
	filter := TaskFilter{VisibleTo: userID}
	return r.collect(func(t *model.Task) bool {
		if !filter.matches(t) || t.IsCompleted() {
			return false
		}
		due := t.DueDate()
		return due != nil && !due.Before(now) && !due.After(limit)
	})
}

// GetTaskStats aggregates over tasks owned by ownerID (all tasks when empty).
func (r *TaskRepository) GetTaskStats(ownerID string) TaskStats {
	stats := TaskStats{
		ByStatus:   make(map[model.Status]int, len(model.Statuses())),
		ByPriority: make(map[model.Priority]int, len(model.Priorities())),
	}
	for _, s := range model.Statuses() {
		stats.ByStatus[s] = 0
	}
	for _, p := range model.Priorities() {
		stats.ByPriority[p] = 0
	}

	for _, task := range r.scoped(ownerID) {
		stats.Total++
		if task.IsCompleted() {
			stats.Completed++
		} else {
			stats.Pending++
		}
		if task.IsOverdue() {
			stats.Overdue++
		}
		stats.ByStatus[task.Status()]++
		stats.ByPriority[task.Priority()]++
	}
	return stats
}

func matchesQuery(task *model.Task, query string) bool {
	if strings.Contains(strings.ToLower(task.Title()), query) ||
		strings.Contains(strings.ToLower(task.Description()), query) {
		return true
	}
	for _, tag := range task.Tags() {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}
