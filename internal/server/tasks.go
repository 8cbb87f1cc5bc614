package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/board"
	"taskboard/internal/models"
)

type taskRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	Priority    models.Priority   `json:"priority"`
	DueDate     *string           `json:"dueDate"`
	AssignedTo  models.Assignee   `json:"AssignedTo"`
}

type statusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

type priorityRequest struct {
	Priority models.Priority `json:"priority" binding:"required"`
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

type commentRequest struct {
	Author  string `json:"author"`
	Message string `json:"message"`
}

// handleListProjectTasks fetches tasks for a project in creation order.
func (s *Server) handleListProjectTasks(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	tasks, err := s.board.ProjectTasks(c.Request.Context(), sessionFrom(c).UserID, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleProjectBoard returns a project with its tasks grouped by priority.
func (s *Server) handleProjectBoard(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := s.board.ProjectBoard(c.Request.Context(), sessionFrom(c).UserID, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// handleCreateTask inserts a new task into a project.
func (s *Server) handleCreateTask(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.board.CreateTask(c.Request.Context(), sessionFrom(c).UserID, projectID, models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleListTasks returns the caller's tasks across projects.
func (s *Server) handleListTasks(c *gin.Context) {
	var q board.TaskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	tasks, err := s.board.Tasks(c.Request.Context(), sessionFrom(c).UserID, q)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.board.Task(c.Request.Context(), sessionFrom(c).UserID, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask applies a partial update from the edit form.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.board.UpdateTask(c.Request.Context(), sessionFrom(c).UserID, id, patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteTask(c.Request.Context(), sessionFrom(c).UserID, id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleOpenTask runs the open-card rule and tells the client what to show.
func (s *Server) handleOpenTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := s.board.OpenTask(c.Request.Context(), sessionFrom(c).UserID, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// handleConfirmDelete answers the delete prompt for a rejected or cancelled task.
func (s *Server) handleConfirmDelete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	deleted, err := s.board.ConfirmDelete(c.Request.Context(), sessionFrom(c).UserID, id, req.Confirm)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) handleUpdateTaskStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	task, err := s.board.SetTaskStatus(c.Request.Context(), sessionFrom(c).UserID, id, req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDropTask moves a task to the priority bucket it was dropped on.
func (s *Server) handleDropTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req priorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := s.board.DropTask(c.Request.Context(), sessionFrom(c).UserID, id, req.Priority)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// handleAddComment appends a comment. The author defaults to the caller's display name.
func (s *Server) handleAddComment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	author := req.Author
	if author == "" {
		session := sessionFrom(c)
		author = session.DisplayName
		if author == "" {
			author = session.Email
		}
	}
	comment, err := s.board.AddComment(c.Request.Context(), sessionFrom(c).UserID, id, models.Comment{
		Author:  author,
		Message: req.Message,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"comment": comment})
}
