package status

import (
	"github.com/samber/lo"

	"taskboard/internal/models"
)

// OpenAction is what the caller must do after a task card is opened.
type OpenAction string

const (
	// ActionPersistAndOpen means the status changed and must be saved before
	// the detail view is shown.
	ActionPersistAndOpen OpenAction = "persistAndOpen"
	// ActionConfirmDelete means the detail view stays closed and the user is
	// asked whether the task should be deleted.
	ActionConfirmDelete OpenAction = "confirmDelete"
	ActionOpen          OpenAction = "open"
)

// OnOpen applies the open-card rule. openedStatus is the status an unread
// task moves to (In-progress or Wait Approve depending on deployment).
func OnOpen(task models.Task, openedStatus models.TaskStatus) (models.TaskStatus, OpenAction) {
	switch task.Status {
	case models.TaskUnread:
		return openedStatus, ActionPersistAndOpen
	case models.TaskRejected, models.TaskCancelled:
		return task.Status, ActionConfirmDelete
	default:
		return task.Status, ActionOpen
	}
}

// IsTerminal reports whether normal editing has ended for the status.
func IsTerminal(s models.TaskStatus) bool {
	return s == models.TaskDone || s == models.TaskRejected || s == models.TaskCancelled
}

// Drop decides whether dropping a task on a priority bucket needs a write.
// Dropping onto the task's own bucket is a no-op.
func Drop(task models.Task, bucket models.Priority) (bool, error) {
	if err := models.ValidatePriority(bucket); err != nil {
		return false, err
	}
	return task.Priority != bucket, nil
}

// Buckets partitions tasks by priority. Tasks with a priority outside the
// known set land in Unknown instead of disappearing.
type Buckets struct {
	Urgent  []models.Task `json:"Urgent"`
	High    []models.Task `json:"High"`
	Medium  []models.Task `json:"Medium"`
	Low     []models.Task `json:"Low"`
	Unknown []models.Task `json:"Unknown"`
}

// Get returns the bucket for a known priority.
func (b Buckets) Get(p models.Priority) []models.Task {
	switch p {
	case models.PriorityUrgent:
		return b.Urgent
	case models.PriorityHigh:
		return b.High
	case models.PriorityMedium:
		return b.Medium
	case models.PriorityLow:
		return b.Low
	}
	return nil
}

// Len is the number of tasks across all buckets.
func (b Buckets) Len() int {
	return len(b.Urgent) + len(b.High) + len(b.Medium) + len(b.Low) + len(b.Unknown)
}

// GroupByPriority keeps the input order inside every bucket.
func GroupByPriority(tasks []models.Task) Buckets {
	groups := lo.GroupBy(tasks, func(t models.Task) models.Priority {
		if _, ok := models.ValidPriorities[t.Priority]; !ok {
			return ""
		}
		return t.Priority
	})
	orEmpty := func(ts []models.Task) []models.Task {
		if ts == nil {
			return []models.Task{}
		}
		return ts
	}
	return Buckets{
		Urgent:  orEmpty(groups[models.PriorityUrgent]),
		High:    orEmpty(groups[models.PriorityHigh]),
		Medium:  orEmpty(groups[models.PriorityMedium]),
		Low:     orEmpty(groups[models.PriorityLow]),
		Unknown: orEmpty(groups[""]),
	}
}
