package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/auth"
)

const sessionKey = "taskboard.session"

type registerRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// authRequired resolves the bearer token into a session and stores it on
// the context for the handlers that follow.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			s.respondError(c, http.StatusUnauthorized, auth.ErrUnauthenticated)
			c.Abort()
			return
		}
		session, err := s.identity.Authenticate(c.Request.Context(), raw)
		if err != nil {
			s.fail(c, err)
			c.Abort()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// sessionFrom returns the session set by authRequired.
func sessionFrom(c *gin.Context) auth.Session {
	session, _ := c.MustGet(sessionKey).(auth.Session)
	return session
}

// handleRegister creates an account and returns a session token.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := s.identity.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, result)
}

// handleLogin exchanges credentials for a session token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := s.identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// handleLogout revokes the caller's session.
func (s *Server) handleLogout(c *gin.Context) {
	if err := s.identity.Logout(c.Request.Context(), sessionFrom(c)); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "logged out"})
}

// handleSession reports the current user, or null when signed out. It never
// answers 401 so clients can poll it for auth state changes.
func (s *Server) handleSession(c *gin.Context) {
	raw, ok := bearerToken(c)
	if !ok {
		respondSuccess(c, http.StatusOK, gin.H{"user": nil})
		return
	}
	session, err := s.identity.Authenticate(c.Request.Context(), raw)
	if err != nil {
		respondSuccess(c, http.StatusOK, gin.H{"user": nil})
		return
	}
	user, err := s.identity.CurrentUser(c.Request.Context(), session)
	if err != nil {
		s.fail(c, err)
		return
	}
	if user == nil {
		respondSuccess(c, http.StatusOK, gin.H{"user": nil})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user, "expiresAt": session.ExpiresAt})
}
