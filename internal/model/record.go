package model

import (
	"slices"
	"strings"
	"time"
)

// TaskRecord is the plain, JSON-serializable form of a Task as kept in storage.
type TaskRecord struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	OwnerID        string     `json:"ownerId"`
	AssigneeID     string     `json:"assigneeId"`
	Category       string     `json:"category"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	Tags           []string   `json:"tags"`
	DueDate        *time.Time `json:"dueDate"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt"`
	EstimatedHours float64    `json:"estimatedHours"`
	ActualHours    float64    `json:"actualHours"`
	Notes          []Note     `json:"notes"`
}

// Record serializes the task.
func (t *Task) Record() TaskRecord {
	tags := slices.Clone(t.tags)
	if tags == nil {
		tags = []string{}
	}
	notes := slices.Clone(t.notes)
	if notes == nil {
		notes = []Note{}
	}
	return TaskRecord{
		ID:             t.id,
		Title:          t.title,
		Description:    t.description,
		OwnerID:        t.ownerID,
		AssigneeID:     t.assigneeID,
		Category:       string(t.category),
		Status:         string(t.status),
		Priority:       string(t.priority),
		Tags:           tags,
		DueDate:        copyTime(t.dueDate),
		CreatedAt:      t.createdAt,
		UpdatedAt:      t.updatedAt,
		CompletedAt:    copyTime(t.completedAt),
		EstimatedHours: t.estimatedHours,
		ActualHours:    t.actualHours,
		Notes:          notes,
	}
}

// FromRecord rebuilds a task from its stored form, applying the same validation
// rules as NewTask. Identity and timestamps are taken from the record.
func FromRecord(rec TaskRecord) (*Task, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return nil, newValidationError("id", MsgTaskIDRequired)
	}
	t, err := NewTask(rec.Title, rec.Description, rec.OwnerID, TaskOptions{
		AssigneeID:     rec.AssigneeID,
		Category:       rec.Category,
		Tags:           rec.Tags,
		Priority:       rec.Priority,
		Status:         rec.Status,
		DueDate:        rec.DueDate,
		EstimatedHours: rec.EstimatedHours,
	})
	if err != nil {
		return nil, err
	}

	t.id = rec.ID
	t.actualHours = nonNegative(rec.ActualHours)
	t.completedAt = copyTime(rec.CompletedAt)
	if !rec.CreatedAt.IsZero() {
		t.createdAt = rec.CreatedAt
	}
	if !rec.UpdatedAt.IsZero() {
		t.updatedAt = rec.UpdatedAt
	} else {
		t.updatedAt = t.createdAt
	}
	if len(rec.Notes) > 0 {
		t.notes = slices.Clone(rec.Notes)
	}
	return t, nil
}
