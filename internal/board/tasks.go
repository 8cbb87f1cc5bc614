package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"taskboard/internal/models"
	"taskboard/internal/status"
)

// TaskQuery selects tasks across all of a user's projects.
type TaskQuery struct {
	Status   models.TaskStatus `form:"status"`
	Priority models.Priority   `form:"priority"`
}

// Tasks lists the user's tasks, newest first.
func (s *Service) Tasks(ctx context.Context, userID string, q TaskQuery) ([]models.Task, error) {
	switch {
	case q.Status != "" && q.Priority != "":
		tasks, err := s.store.ListTasksByStatus(ctx, userID, q.Status)
		if err != nil {
			return nil, err
		}
		return lo.Filter(tasks, func(t models.Task, _ int) bool { return t.Priority == q.Priority }), nil
	case q.Status != "":
		return s.store.ListTasksByStatus(ctx, userID, q.Status)
	case q.Priority != "":
		return s.store.ListTasksByPriority(ctx, userID, q.Priority)
	default:
		return s.store.ListAllTasks(ctx, userID)
	}
}

// ProjectTasks lists a project's tasks, oldest first.
func (s *Service) ProjectTasks(ctx context.Context, userID, projectID string) ([]models.Task, error) {
	if _, err := s.requireProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, userID, projectID)
}

// Task returns one task or nil when there is no such task.
func (s *Service) Task(ctx context.Context, userID, id string) (*models.Task, error) {
	return s.store.GetTask(ctx, userID, id)
}

func (s *Service) CreateTask(ctx context.Context, userID, projectID string, t models.Task) (models.Task, error) {
	t.ProjectID = projectID
	created, err := s.store.CreateTask(ctx, userID, t)
	if err != nil {
		return models.Task{}, err
	}
	s.logger.Info("task created", slog.String("task", created.ID), slog.String("project", projectID))
	return created, nil
}

func (s *Service) UpdateTask(ctx context.Context, userID, id string, patch models.TaskPatch) (models.Task, error) {
	return s.store.UpdateTask(ctx, userID, id, patch)
}

// SetTaskStatus sets any status directly, as the edit form does.
func (s *Service) SetTaskStatus(ctx context.Context, userID, id string, st models.TaskStatus) (models.Task, error) {
	if err := s.store.UpdateTaskStatus(ctx, userID, id, st); err != nil {
		return models.Task{}, err
	}
	return s.requireTask(ctx, userID, id)
}

func (s *Service) DeleteTask(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTask(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", slog.String("task", id), slog.String("uid", userID))
	return nil
}

func (s *Service) AddComment(ctx context.Context, userID, taskID string, c models.Comment) (models.Comment, error) {
	return s.store.AddComment(ctx, userID, taskID, c)
}

// OpenResult tells the caller what to show after a card was opened.
type OpenResult struct {
	Task   models.Task       `json:"task"`
	Action status.OpenAction `json:"action"`
}

// OpenTask applies the open-card rule. An Unread task is persisted with the
// opened status exactly once and returned as re-read from the store. A
// rejected or cancelled task is returned unchanged with the confirm-delete
// action.
func (s *Service) OpenTask(ctx context.Context, userID, id string) (OpenResult, error) {
	task, err := s.requireTask(ctx, userID, id)
	if err != nil {
		return OpenResult{}, err
	}

	next, action := status.OnOpen(task, s.cfg.OpenedStatus)
	if action == status.ActionPersistAndOpen {
		if err := s.store.UpdateTaskStatus(ctx, userID, id, next); err != nil {
			return OpenResult{}, err
		}
		if task, err = s.requireTask(ctx, userID, id); err != nil {
			return OpenResult{}, err
		}
		s.logger.Debug("task opened", slog.String("task", id), slog.String("status", string(next)))
	}
	s.recorder.ObserveOpen(action)
	return OpenResult{Task: task, Action: action}, nil
}

// ConfirmDelete answers the delete prompt raised by OpenTask. Declining
// leaves the task untouched.
func (s *Service) ConfirmDelete(ctx context.Context, userID, id string, confirmed bool) (bool, error) {
	if !confirmed {
		if _, err := s.requireTask(ctx, userID, id); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := s.DeleteTask(ctx, userID, id); err != nil {
		return false, err
	}
	return true, nil
}

// DropResult reports the outcome of a drag-and-drop.
type DropResult struct {
	Task  models.Task `json:"task"`
	Moved bool        `json:"moved"`
}

// DropTask moves a task to the priority bucket it was dropped on. Dropping
// on the current bucket writes nothing.
func (s *Service) DropTask(ctx context.Context, userID, id string, bucket models.Priority) (DropResult, error) {
	task, err := s.requireTask(ctx, userID, id)
	if err != nil {
		return DropResult{}, err
	}
	write, err := status.Drop(task, bucket)
	if err != nil {
		return DropResult{}, err
	}
	if !write {
		return DropResult{Task: task}, nil
	}
	if err := s.store.UpdateTaskPriority(ctx, userID, id, bucket); err != nil {
		return DropResult{}, err
	}
	if task, err = s.requireTask(ctx, userID, id); err != nil {
		return DropResult{}, err
	}
	return DropResult{Task: task, Moved: true}, nil
}

// ProjectBoard is a project with its tasks grouped by priority.
type ProjectBoard struct {
	Project    models.Project `json:"project"`
	Buckets    status.Buckets `json:"buckets"`
	Generation uint64         `json:"generation"`
}

// ProjectBoard loads a project and its tasks. Each call supersedes earlier
// calls by the same user; a superseded call returns ErrStale instead of
// data that could overwrite a newer view.
func (s *Service) ProjectBoard(ctx context.Context, userID, projectID string) (ProjectBoard, error) {
	gen := s.generations.Begin(userID)

	project, err := s.requireProject(ctx, userID, projectID)
	if err != nil {
		return ProjectBoard{}, err
	}
	tasks, err := s.store.ListTasks(ctx, userID, projectID)
	if err != nil {
		return ProjectBoard{}, err
	}

	if !s.generations.Current(userID, gen) {
		s.logger.Debug("discarding stale board fetch", slog.String("project", projectID), slog.Uint64("generation", gen))
		return ProjectBoard{}, ErrStale
	}

	buckets := status.GroupByPriority(tasks)
	if n := len(buckets.Unknown); n > 0 {
		s.logger.Warn("tasks with unknown priority", slog.String("project", projectID), slog.Int("count", n))
	}
	return ProjectBoard{Project: project, Buckets: buckets, Generation: gen}, nil
}

func (s *Service) requireProject(ctx context.Context, userID, id string) (models.Project, error) {
	p, err := s.store.GetProject(ctx, userID, id)
	if err != nil {
		return models.Project{}, err
	}
	if p == nil {
		return models.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return *p, nil
}

func (s *Service) requireTask(ctx context.Context, userID, id string) (models.Task, error) {
	t, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return models.Task{}, err
	}
	if t == nil {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return *t, nil
}
