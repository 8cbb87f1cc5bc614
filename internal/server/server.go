package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/auth"
	"taskboard/internal/board"
	"taskboard/internal/metrics"
	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server provides HTTP handlers for the task board backend.
type Server struct {
	engine    *gin.Engine
	board     *board.Service
	identity  *auth.Service
	metrics   *metrics.Metrics
	db        Pinger
	logger    *slog.Logger
	staticDir string
}

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Board     *board.Service
	Identity  *auth.Service
	Metrics   *metrics.Metrics
	DB        Pinger
	Logger    *slog.Logger
	StaticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/metrics"))
	router.Use(m.Middleware())

	srv := &Server{
		engine:    router,
		board:     deps.Board,
		identity:  deps.Identity,
		metrics:   m,
		db:        deps.DB,
		logger:    logger,
		staticDir: deps.StaticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", s.handleRegister)
			authGroup.POST("/login", s.handleLogin)
			authGroup.GET("/session", s.handleSession)
			authGroup.POST("/logout", s.authRequired(), s.handleLogout)
		}

		protected := api.Group("", s.authRequired())
		{
			protected.GET("/dashboard", s.handleDashboard)

			projects := protected.Group("/projects")
			{
				projects.GET("", s.handleListProjects)
				projects.POST("", s.handleCreateProject)
				projects.GET(":id", s.handleGetProject)
				projects.PUT(":id", s.handleUpdateProject)
				projects.DELETE(":id", s.handleDeleteProject)
				projects.GET(":id/members", s.handleListMembers)
				projects.POST(":id/members", s.handleAddMember)
				projects.DELETE(":id/members/:memberId", s.handleRemoveMember)
				projects.GET(":id/tasks", s.handleListProjectTasks)
				projects.POST(":id/tasks", s.handleCreateTask)
				projects.GET(":id/board", s.handleProjectBoard)
			}

			tasks := protected.Group("/tasks")
			{
				tasks.GET("", s.handleListTasks)
				tasks.GET(":id", s.handleGetTask)
				tasks.PATCH(":id", s.handleUpdateTask)
				tasks.DELETE(":id", s.handleDeleteTask)
				tasks.POST(":id/open", s.handleOpenTask)
				tasks.POST(":id/delete-confirmation", s.handleConfirmDelete)
				tasks.PUT(":id/status", s.handleUpdateTaskStatus)
				tasks.PUT(":id/priority", s.handleDropTask)
				tasks.POST(":id/comments", s.handleAddComment)
			}
		}
	}

	s.mountStatic()
}

// handleHealth reports readiness, including the database connection.
func (s *Server) handleHealth(c *gin.Context) {
	if s.db != nil {
		if err := s.db.Ping(c.Request.Context()); err != nil {
			s.respondError(c, http.StatusServiceUnavailable, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID reads an opaque identifier from the path.
func parseID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" || len(id) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return "", false
	}
	return id, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case models.IsValidation(err),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, sqlite.ErrNotFound),
		errors.Is(err, board.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, sqlite.ErrConflict),
		errors.Is(err, board.ErrStale):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status derived from err.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondError logs the error and returns a JSON payload. Server-side
// failures are reported to the client with a generic message.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", message))
		message = "operation failed, please try again"
	} else {
		s.logger.Warn("request rejected", slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", message))
	}
	c.JSON(status, gin.H{"error": message})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
