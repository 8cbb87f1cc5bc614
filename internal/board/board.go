// Package board is the application layer between HTTP handlers and the
// document store. Every mutation writes to the store first and only then
// re-reads the record, so callers never see speculative state.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"taskboard/internal/filter"
	"taskboard/internal/models"
	"taskboard/internal/status"
)

var (
	// ErrNotFound is returned when an operation needs a record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStale is returned when a newer fetch for the same view has started.
	ErrStale = errors.New("fetch superseded by a newer request")
)

// Store is the document store the board operates on.
type Store interface {
	ListProjects(ctx context.Context, userID string) ([]models.Project, error)
	GetProject(ctx context.Context, userID, id string) (*models.Project, error)
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	UpdateProject(ctx context.Context, p models.Project) (models.Project, error)
	DeleteProject(ctx context.Context, userID, id string) error
	ListMembers(ctx context.Context, userID, projectID string) ([]models.Member, error)
	AddMember(ctx context.Context, userID, projectID string, m models.Member) (models.Member, error)
	RemoveMember(ctx context.Context, userID, projectID, memberID string) error

	ListAllTasks(ctx context.Context, userID string) ([]models.Task, error)
	ListTasks(ctx context.Context, userID, projectID string) ([]models.Task, error)
	ListTasksByStatus(ctx context.Context, userID string, s models.TaskStatus) ([]models.Task, error)
	ListTasksByPriority(ctx context.Context, userID string, p models.Priority) ([]models.Task, error)
	GetTask(ctx context.Context, userID, id string) (*models.Task, error)
	CreateTask(ctx context.Context, userID string, t models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, userID, id string, patch models.TaskPatch) (models.Task, error)
	UpdateTaskStatus(ctx context.Context, userID, id string, s models.TaskStatus) error
	UpdateTaskPriority(ctx context.Context, userID, id string, p models.Priority) error
	DeleteTask(ctx context.Context, userID, id string) error
	AddComment(ctx context.Context, userID, taskID string, c models.Comment) (models.Comment, error)
}

// Recorder receives board events for metrics.
type Recorder interface {
	ObserveStats(status.Stats)
	ObserveOpen(status.OpenAction)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStats(status.Stats)     {}
func (nopRecorder) ObserveOpen(status.OpenAction) {}

// Config tunes the board rules.
type Config struct {
	// OpenedStatus is what an Unread task becomes when opened.
	OpenedStatus models.TaskStatus
	RecentLimit  int
}

// Service implements the board operations for one store.
type Service struct {
	store       Store
	logger      *slog.Logger
	recorder    Recorder
	now         func() time.Time
	cfg         Config
	generations *Generations
}

// Option customises a Service.
type Option func(*Service)

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, logger *slog.Logger, cfg Config, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OpenedStatus == "" {
		cfg.OpenedStatus = models.TaskInProgress
	}
	if cfg.OpenedStatus != models.TaskInProgress && cfg.OpenedStatus != models.TaskWaitApprove {
		return nil, fmt.Errorf("opened status must be %q or %q, got %q",
			models.TaskInProgress, models.TaskWaitApprove, cfg.OpenedStatus)
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = status.DefaultRecentLimit
	}
	s := &Service{
		store:       store,
		logger:      logger,
		recorder:    nopRecorder{},
		now:         time.Now,
		cfg:         cfg,
		generations: NewGenerations(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dashboard is the aggregate shown on the landing page.
type Dashboard struct {
	Stats         status.Stats     `json:"stats"`
	Recent        []models.Project `json:"recent"`
	Projects      []models.Project `json:"projects"`
	FilteredCount int              `json:"filteredCount"`
	Total         int              `json:"total"`
	Filter        filter.Query     `json:"filter"`
}

// Dashboard loads the user's projects once and derives stats, the recent
// list and the filtered list from the same snapshot. recent <= 0 uses the
// configured default.
func (s *Service) Dashboard(ctx context.Context, userID string, q filter.Query, recent int) (Dashboard, error) {
	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	if recent <= 0 {
		recent = s.cfg.RecentLimit
	}
	stats := status.ComputeStats(projects, s.now())
	s.recorder.ObserveStats(stats)

	filtered := filter.Apply(projects, q)
	return Dashboard{
		Stats:         stats,
		Recent:        status.RecentProjects(projects, recent),
		Projects:      filtered,
		FilteredCount: len(filtered),
		Total:         len(projects),
		Filter:        q,
	}, nil
}

// ProjectView pairs a project with an overdue flag for list rendering.
type ProjectView struct {
	models.Project
	Overdue bool `json:"overdue"`
}

// Projects lists the user's projects, newest first, narrowed by q.
func (s *Service) Projects(ctx context.Context, userID string, q filter.Query) ([]ProjectView, error) {
	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return lo.Map(filter.Apply(projects, q), func(p models.Project, _ int) ProjectView {
		return ProjectView{Project: p, Overdue: status.IsOverdue(p, now)}
	}), nil
}

// Project returns one project or nil when there is no such project.
func (s *Service) Project(ctx context.Context, userID, id string) (*models.Project, error) {
	return s.store.GetProject(ctx, userID, id)
}

func (s *Service) CreateProject(ctx context.Context, userID string, p models.Project) (models.Project, error) {
	p.UserID = userID
	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return models.Project{}, err
	}
	s.logger.Info("project created", slog.String("project", created.ID), slog.String("uid", userID))
	return created, nil
}

// UpdateProject replaces the editable fields of a project. Task snapshots of
// the project name are left as they were.
func (s *Service) UpdateProject(ctx context.Context, userID string, p models.Project) (models.Project, error) {
	p.UserID = userID
	return s.store.UpdateProject(ctx, p)
}

func (s *Service) DeleteProject(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteProject(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", slog.String("project", id), slog.String("uid", userID))
	return nil
}

func (s *Service) Members(ctx context.Context, userID, projectID string) ([]models.Member, error) {
	return s.store.ListMembers(ctx, userID, projectID)
}

func (s *Service) AddMember(ctx context.Context, userID, projectID string, m models.Member) (models.Member, error) {
	return s.store.AddMember(ctx, userID, projectID, m)
}

func (s *Service) RemoveMember(ctx context.Context, userID, projectID, memberID string) error {
	return s.store.RemoveMember(ctx, userID, projectID, memberID)
}
