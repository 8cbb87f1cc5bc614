package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

// Every task query is scoped through the owning project's user.
const (
	taskColumns = `t.id, t.project_id, t.project_name, t.title, t.description, t.status, t.priority,
        t.due_date, t.assigned_to, t.comments, t.created_at, t.updated_at`
	taskFrom  = ` FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.user_id = ?`
	ownedTask = `id = ? AND project_id IN (SELECT id FROM projects WHERE user_id = ?)`
)

// ListAllTasks returns every task of the user, newest first.
func (s *Store) ListAllTasks(ctx context.Context, userID string) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+taskFrom+` ORDER BY t.created_at DESC, t.rowid DESC`, userID)
}

// ListTasks returns the tasks of a project, oldest first.
func (s *Store) ListTasks(ctx context.Context, userID, projectID string) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+taskFrom+` AND t.project_id = ?
        ORDER BY t.created_at ASC, t.rowid ASC`, userID, projectID)
}

// ListTasksByStatus returns the user's tasks with the given status, newest first.
func (s *Store) ListTasksByStatus(ctx context.Context, userID string, status models.TaskStatus) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+taskFrom+` AND t.status = ?
        ORDER BY t.created_at DESC, t.rowid DESC`, userID, string(status))
}

// ListTasksByPriority returns the user's tasks with the given priority, newest first.
func (s *Store) ListTasksByPriority(ctx context.Context, userID string, priority models.Priority) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+taskFrom+` AND t.priority = ?
        ORDER BY t.created_at DESC, t.rowid DESC`, userID, string(priority))
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a task by id. A missing task yields nil, nil.
func (s *Store) GetTask(ctx context.Context, userID, id string) (*models.Task, error) {
	return getTask(ctx, s.db, userID, id)
}

func getTask(ctx context.Context, q queryer, userID, id string) (*models.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+taskFrom+` AND t.id = ?`, userID, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts a new task into one of the user's projects. Status
// defaults to Unread and priority to Medium. The project name is copied
// onto the task when the caller did not supply one.
func (s *Store) CreateTask(ctx context.Context, userID string, t models.Task) (models.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.Status == "" {
		t.Status = models.TaskUnread
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if err := t.Validate(); err != nil {
		return models.Task{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	project, err := s.GetProject(ctx, userID, t.ProjectID)
	if err != nil {
		return models.Task{}, err
	}
	if project == nil {
		return models.Task{}, fmt.Errorf("project %s: %w", t.ProjectID, ErrNotFound)
	}
	if t.ProjectName == "" {
		t.ProjectName = project.Name
	}

	comments := s.prepareComments(t.Comments)
	commentsJSON, err := encodeJSON(comments)
	if err != nil {
		return models.Task{}, err
	}
	assigned, err := encodeJSON(t.AssignedTo)
	if err != nil {
		return models.Task{}, err
	}

	now := formatTime(s.stamp())
	_, err = s.db.ExecContext(ctx, `INSERT INTO tasks(id, project_id, project_name, title, description, status, priority,
        due_date, assigned_to, comments, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.ProjectName, t.Title, t.Description, string(t.Status), string(t.Priority),
		nullableString(t.DueDate), assigned, commentsJSON, now, now)
	if isUniqueViolation(err) {
		return models.Task{}, fmt.Errorf("task %s: %w", t.ID, ErrConflict)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.mustGetTask(ctx, userID, t.ID)
}

// UpdateTask merges a partial update into a task. The project link is immutable.
func (s *Store) UpdateTask(ctx context.Context, userID, id string, patch models.TaskPatch) (models.Task, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getTask(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		if patch.Title != nil {
			trimmed := strings.TrimSpace(*patch.Title)
			patch.Title = &trimmed
		}
		if err := patch.Apply(current); err != nil {
			return err
		}
		assigned, err := encodeJSON(current.AssignedTo)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
            due_date = ?, assigned_to = ?, updated_at = ? WHERE id = ?`,
			current.Title, current.Description, string(current.Status), string(current.Priority),
			nullableString(current.DueDate), assigned, formatTime(s.stamp()), id)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return s.mustGetTask(ctx, userID, id)
}

// UpdateTaskStatus sets the status of a task without any transition guard.
func (s *Store) UpdateTaskStatus(ctx context.Context, userID, id string, status models.TaskStatus) error {
	if err := models.ValidateTaskStatus(status); err != nil {
		return err
	}
	return s.setTaskField(ctx, "status", userID, id, string(status))
}

// UpdateTaskPriority moves a task to another priority bucket.
func (s *Store) UpdateTaskPriority(ctx context.Context, userID, id string, priority models.Priority) error {
	if err := models.ValidatePriority(priority); err != nil {
		return err
	}
	return s.setTaskField(ctx, "priority", userID, id, string(priority))
}

// setTaskField only receives column names from this file.
func (s *Store) setTaskField(ctx context.Context, column, userID, id, value string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET `+column+` = ?, updated_at = ? WHERE `+ownedTask,
		value, formatTime(s.stamp()), id, userID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", column, err)
	}
	return expectAffected(res, "update task "+column)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE `+ownedTask, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectAffected(res, "delete task")
}

// AddComment appends a comment to a task. Existing comments keep their order.
func (s *Store) AddComment(ctx context.Context, userID, taskID string, c models.Comment) (models.Comment, error) {
	c.Message = strings.TrimSpace(c.Message)
	if c.Message == "" {
		return models.Comment{}, models.ErrEmptyComment
	}
	c = s.prepareComments([]models.Comment{c})[0]

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getTask(ctx, tx, userID, taskID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		for _, existing := range current.Comments {
			if existing.ID == c.ID {
				return nil
			}
		}
		comments, err := encodeJSON(append(current.Comments, c))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE tasks SET comments = ?, updated_at = ? WHERE id = ?`,
			comments, formatTime(s.stamp()), taskID)
		if err != nil {
			return fmt.Errorf("add comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

func (s *Store) prepareComments(comments []models.Comment) []models.Comment {
	out := make([]models.Comment, len(comments))
	for i, c := range comments {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.stamp()
		}
		out[i] = c
	}
	return out
}

func (s *Store) mustGetTask(ctx context.Context, userID, id string) (models.Task, error) {
	t, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return models.Task{}, err
	}
	if t == nil {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return *t, nil
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t                    models.Task
		status, priority     string
		dueDate              sql.NullString
		assigned, comments   string
		createdAt, updatedAt string
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.ProjectName, &t.Title, &t.Description, &status, &priority,
		&dueDate, &assigned, &comments, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, err
		}
		return models.Task{}, fmt.Errorf("scan task: %w", err)
	}
	t.Status = models.TaskStatus(status)
	t.Priority = models.Priority(priority)
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if err := decodeJSON(assigned, &t.AssignedTo); err != nil {
		return models.Task{}, err
	}
	t.Comments = []models.Comment{}
	if err := decodeJSON(comments, &t.Comments); err != nil {
		return models.Task{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Task{}, err
	}
	return t, nil
}
