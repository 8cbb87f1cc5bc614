package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/filter"
	"taskboard/internal/models"
)

type projectRequest struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Members        []models.Member      `json:"members"`
	ProjectStatus  models.ProjectStatus `json:"projectStatus"`
	ProjectDueDate string               `json:"projectDueDate"`
}

func (r projectRequest) project() models.Project {
	return models.Project{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		Members:        r.Members,
		ProjectStatus:  r.ProjectStatus,
		ProjectDueDate: r.ProjectDueDate,
	}
}

type memberRequest struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Role  models.MemberRole `json:"role"`
}

type dashboardQuery struct {
	filter.Query
	Recent int `form:"recent"`
}

// handleDashboard returns stats, recent projects and the filtered project list.
func (s *Server) handleDashboard(c *gin.Context) {
	var q dashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	dashboard, err := s.board.Dashboard(c.Request.Context(), sessionFrom(c).UserID, q.Query, q.Recent)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, dashboard)
}

// handleListProjects returns the caller's projects, narrowed by q and status.
func (s *Server) handleListProjects(c *gin.Context) {
	var q filter.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	projects, err := s.board.Projects(c.Request.Context(), sessionFrom(c).UserID, q)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.board.CreateProject(c.Request.Context(), sessionFrom(c).UserID, req.project())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := s.board.Project(c.Request.Context(), sessionFrom(c).UserID, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleUpdateProject replaces the editable fields of a project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	p := req.project()
	p.ID = id

	project, err := s.board.UpdateProject(c.Request.Context(), sessionFrom(c).UserID, p)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and all related tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.board.DeleteProject(c.Request.Context(), sessionFrom(c).UserID, id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleListMembers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	members, err := s.board.Members(c.Request.Context(), sessionFrom(c).UserID, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"members": members})
}

func (s *Server) handleAddMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	member, err := s.board.AddMember(c.Request.Context(), sessionFrom(c).UserID, id, models.Member{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"member": member})
}

func (s *Server) handleRemoveMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	memberID, ok := parseID(c, "memberId")
	if !ok {
		return
	}
	if err := s.board.RemoveMember(c.Request.Context(), sessionFrom(c).UserID, id, memberID); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "removed"})
}
