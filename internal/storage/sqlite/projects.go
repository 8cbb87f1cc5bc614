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

const projectColumns = `id, user_id, name, description, members, project_status, project_due_date, created_at, updated_at`

// ListProjects retrieves a user's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects
        WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProject fetches a single project. A missing project yields nil, nil.
func (s *Store) GetProject(ctx context.Context, userID, id string) (*models.Project, error) {
	return getProject(ctx, s.db, userID, id)
}

func getProject(ctx context.Context, q queryer, userID, id string) (*models.Project, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject persists a new project owned by p.UserID. An empty id is
// replaced with a fresh one; member ids and join times are filled in.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.UserID == "" {
		return models.Project{}, fmt.Errorf("project owner must not be empty")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.stamp()
	p.Members = s.prepareMembers(p.Members)
	if err := p.Validate(); err != nil {
		return models.Project{}, err
	}

	members, err := encodeJSON(p.Members)
	if err != nil {
		return models.Project{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, strings.TrimSpace(p.Description), members,
		string(p.ProjectStatus), p.ProjectDueDate, formatTime(now), formatTime(now))
	if isUniqueViolation(err) {
		return models.Project{}, fmt.Errorf("project %s: %w", p.ID, ErrConflict)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return s.mustGetProject(ctx, p.UserID, p.ID)
}

// UpdateProject replaces the editable fields of a project and stamps updatedAt.
// The id, owner and createdAt never change.
func (s *Store) UpdateProject(ctx context.Context, p models.Project) (models.Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Members = s.prepareMembers(p.Members)
	if err := p.Validate(); err != nil {
		return models.Project{}, err
	}
	members, err := encodeJSON(p.Members)
	if err != nil {
		return models.Project{}, err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, description = ?, members = ?,
        project_status = ?, project_due_date = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		p.Name, strings.TrimSpace(p.Description), members, string(p.ProjectStatus), p.ProjectDueDate,
		formatTime(s.stamp()), p.ID, p.UserID)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := expectAffected(res, "update project"); err != nil {
		return models.Project{}, err
	}
	return s.mustGetProject(ctx, p.UserID, p.ID)
}

// DeleteProject removes a project along with its tasks.
func (s *Store) DeleteProject(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return expectAffected(res, "delete project")
}

// ListMembers returns the members of a project in join order.
func (s *Store) ListMembers(ctx context.Context, userID, projectID string) ([]models.Member, error) {
	p, err := s.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return p.Members, nil
}

// AddMember appends a member to a project and stamps joinedAt.
func (s *Store) AddMember(ctx context.Context, userID, projectID string, m models.Member) (models.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.JoinedAt = s.stamp()
	if err := m.Validate(); err != nil {
		return models.Member{}, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProject(ctx, tx, userID, projectID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		p.Members = append(p.Members, m)
		if err := p.Validate(); err != nil {
			return err
		}
		return s.writeMembers(ctx, tx, p)
	})
	if err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// RemoveMember drops a member from a project. Removing an unknown member
// id leaves the list unchanged.
func (s *Store) RemoveMember(ctx context.Context, userID, projectID, memberID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProject(ctx, tx, userID, projectID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		kept := p.Members[:0]
		for _, member := range p.Members {
			if member.ID != memberID {
				kept = append(kept, member)
			}
		}
		p.Members = kept
		return s.writeMembers(ctx, tx, p)
	})
}

func (s *Store) writeMembers(ctx context.Context, tx *sql.Tx, p *models.Project) error {
	members, err := encodeJSON(p.Members)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE projects SET members = ?, updated_at = ? WHERE id = ?`,
		members, formatTime(s.stamp()), p.ID)
	if err != nil {
		return fmt.Errorf("update members: %w", err)
	}
	return nil
}

func (s *Store) prepareMembers(members []models.Member) []models.Member {
	if members == nil {
		return []models.Member{}
	}
	out := make([]models.Member, len(members))
	for i, m := range members {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.JoinedAt.IsZero() {
			m.JoinedAt = s.stamp()
		}
		out[i] = m
	}
	return out
}

func (s *Store) mustGetProject(ctx context.Context, userID, id string) (models.Project, error) {
	p, err := s.GetProject(ctx, userID, id)
	if err != nil {
		return models.Project{}, err
	}
	if p == nil {
		return models.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return *p, nil
}

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p                    models.Project
		status, members      string
		createdAt, updatedAt string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &members, &status, &p.ProjectDueDate, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, err
		}
		return models.Project{}, fmt.Errorf("scan project: %w", err)
	}
	p.ProjectStatus = models.ProjectStatus(status)
	p.Members = []models.Member{}
	if err := decodeJSON(members, &p.Members); err != nil {
		return models.Project{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Project{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Project{}, err
	}
	return p, nil
}
