package model

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
)

// Priority of a task. Unknown input falls back to PriorityMedium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityOrder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Priorities returns every priority from lowest to highest.
func Priorities() []Priority {
	return slices.Clone(priorityOrder)
}

// ParsePriority never fails: unknown values map to PriorityMedium.
func ParsePriority(raw string) Priority {
	p := Priority(raw)
	if slices.Contains(priorityOrder, p) {
		return p
	}
	return PriorityMedium
}

// Status of a task. Unknown input falls back to StatusPending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var statusOrder = []Status{StatusPending, StatusInProgress, StatusBlocked, StatusCompleted, StatusCancelled}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return slices.Clone(statusOrder)
}

// ParseStatus never fails: unknown values map to StatusPending.
func ParseStatus(raw string) Status {
	s := Status(raw)
	if slices.Contains(statusOrder, s) {
		return s
	}
	return StatusPending
}

// Note is an append-only comment on a task.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskOptions carries the optional attributes accepted by NewTask.
type TaskOptions struct {
	AssigneeID     string
	Category       string
	Tags           []string
	Priority       string
	Status         string
	DueDate        *time.Time
	EstimatedHours float64
}

// Task represents a single unit of work. Fields are only changed through its methods.
type Task struct {
	id             string
	title          string
	description    string
	ownerID        string
	assigneeID     string
	category       Category
	tags           []string
	priority       Priority
	status         Status
	dueDate        *time.Time
	createdAt      time.Time
	updatedAt      time.Time
	completedAt    *time.Time
	estimatedHours float64
	actualHours    float64
	notes          []Note
}

var nowFunc = time.Now

var taskIDSuffix = mustIDGenerator()

func mustIDGenerator() func() string {
	gen, err := nanoid.CustomASCII("0123456789abcdefghijklmnopqrstuvwxyz", 9)
	if err != nil {
		panic(fmt.Sprintf("model: id generator: %v", err))
	}
	return gen
}

func newTaskID(now time.Time) string {
	return fmt.Sprintf("task_%d_%s", now.UnixMilli(), taskIDSuffix())
}

// NewTask builds a validated task owned by ownerID.
func NewTask(title, description, ownerID string, opts TaskOptions) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, newValidationError("title", MsgTitleRequired)
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, newValidationError("ownerId", MsgOwnerRequired)
	}

	category := DefaultCategory
	if opts.Category != "" {
		c, err := ParseCategory(opts.Category)
		if err != nil {
			return nil, err
		}
		category = c
	}

	assignee := opts.AssigneeID
	if assignee == "" {
		assignee = ownerID
	}

	now := nowFunc()
	t := &Task{
		id:             newTaskID(now),
		title:          title,
		description:    strings.TrimSpace(description),
		ownerID:        ownerID,
		assigneeID:     assignee,
		category:       category,
		tags:           uniqueTags(opts.Tags),
		priority:       ParsePriority(opts.Priority),
		status:         ParseStatus(opts.Status),
		dueDate:        copyTime(opts.DueDate),
		createdAt:      now,
		updatedAt:      now,
		estimatedHours: nonNegative(opts.EstimatedHours),
		notes:          []Note{},
	}
	if t.status == StatusCompleted {
		t.completedAt = copyTime(&now)
	}
	return t, nil
}

func (t *Task) ID() string              { return t.id }
func (t *Task) Title() string           { return t.title }
func (t *Task) Description() string     { return t.description }
func (t *Task) OwnerID() string         { return t.ownerID }
func (t *Task) AssigneeID() string      { return t.assigneeID }
func (t *Task) Category() Category      { return t.category }
func (t *Task) Priority() Priority      { return t.priority }
func (t *Task) Status() Status          { return t.status }
func (t *Task) CreatedAt() time.Time    { return t.createdAt }
func (t *Task) UpdatedAt() time.Time    { return t.updatedAt }
func (t *Task) EstimatedHours() float64 { return t.estimatedHours }
func (t *Task) ActualHours() float64    { return t.actualHours }
func (t *Task) Tags() []string          { return slices.Clone(t.tags) }
func (t *Task) Notes() []Note           { return slices.Clone(t.notes) }
func (t *Task) DueDate() *time.Time     { return copyTime(t.dueDate) }
func (t *Task) CompletedAt() *time.Time { return copyTime(t.completedAt) }

// IsCompleted is derived from the status.
func (t *Task) IsCompleted() bool {
	return t.status == StatusCompleted
}

// IsOverdue reports a passed due date on a task that is not completed.
func (t *Task) IsOverdue() bool {
	return t.IsOverdueAt(nowFunc())
}

// IsOverdueAt is IsOverdue evaluated at now.
func (t *Task) IsOverdueAt(now time.Time) bool {
	if t.dueDate == nil || t.IsCompleted() {
		return false
	}
	return now.After(*t.dueDate)
}

// DaysUntilDue returns the ceiling of the remaining whole days, or nil without a due date.
func (t *Task) DaysUntilDue() *int {
	if t.dueDate == nil {
		return nil
	}
	days := int(math.Ceil(t.dueDate.Sub(nowFunc()).Hours() / 24))
	return &days
}

// IsHighPriority covers both high and urgent.
func (t *Task) IsHighPriority() bool {
	return t.priority == PriorityHigh || t.priority == PriorityUrgent
}

func (t *Task) CategoryDisplayName() string {
	return t.category.DisplayName()
}

func (t *Task) IsInCategory(c Category) bool {
	return t.category == c
}

func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.tags, tag)
}

// IsVisibleTo reports whether userID owns the task or is assigned to it.
func (t *Task) IsVisibleTo(userID string) bool {
	return userID != "" && (t.ownerID == userID || t.assigneeID == userID)
}

func (t *Task) touch() {
	t.updatedAt = nowFunc()
}

func (t *Task) UpdateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return newValidationError("title", MsgTitleEmpty)
	}
	t.title = title
	t.touch()
	return nil
}

func (t *Task) UpdateDescription(description string) {
	t.description = strings.TrimSpace(description)
	t.touch()
}

// UpdateCategory leaves the task untouched when raw is not a known category.
func (t *Task) UpdateCategory(raw string) error {
	c, err := ParseCategory(raw)
	if err != nil {
		return err
	}
	t.category = c
	t.touch()
	return nil
}

func (t *Task) UpdatePriority(raw string) {
	t.priority = ParsePriority(raw)
	t.touch()
}

// UpdateStatus records completedAt whenever the task moves into completed from
// another status. Leaving completed keeps the recorded completedAt.
func (t *Task) UpdateStatus(raw string) {
	previous := t.status
	t.status = ParseStatus(raw)
	if t.status == StatusCompleted && previous != StatusCompleted {
		now := nowFunc()
		t.completedAt = &now
	}
	t.touch()
}

// SetDueDate replaces the due date; nil clears it.
func (t *Task) SetDueDate(due *time.Time) {
	t.dueDate = copyTime(due)
	t.touch()
}

// AssignTo hands the task to userID; an empty id assigns it back to the owner.
func (t *Task) AssignTo(userID string) {
	if strings.TrimSpace(userID) == "" {
		userID = t.ownerID
	}
	t.assigneeID = userID
	t.touch()
}

func (t *Task) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" || t.HasTag(tag) {
		return
	}
	t.tags = append(t.tags, tag)
	t.touch()
}

func (t *Task) RemoveTag(tag string) {
	idx := slices.Index(t.tags, tag)
	if idx < 0 {
		return
	}
	t.tags = slices.Delete(t.tags, idx, idx+1)
	t.touch()
}

// AddNote appends a trimmed note; blank text is ignored.
func (t *Task) AddNote(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	t.notes = append(t.notes, Note{
		ID:        uuid.NewString(),
		Content:   text,
		CreatedAt: nowFunc(),
	})
	t.touch()
}

func (t *Task) SetEstimatedHours(hours float64) {
	t.estimatedHours = nonNegative(hours)
	t.touch()
}

// LogHours adds worked time to actualHours. Non-positive and non-finite values
// are ignored.
func (t *Task) LogHours(hours float64) {
	if hours <= 0 || !finite(hours) || !finite(t.actualHours+hours) {
		return
	}
	t.actualHours += hours
	t.touch()
}

// Clone returns a deep copy that shares no state with t.
func (t *Task) Clone() *Task {
	c := *t
	c.tags = slices.Clone(t.tags)
	c.notes = slices.Clone(t.notes)
	c.dueDate = copyTime(t.dueDate)
	c.completedAt = copyTime(t.completedAt)
	return &c
}

func uniqueTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// nonNegative clamps negative and non-finite hours to 0; JSON cannot encode
// NaN or infinities.
func nonNegative(v float64) float64 {
	if v < 0 || !finite(v) {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func copyTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	v := *ts
	return &v
}
