package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the compiled single page app. Client routes such as
// /Dashboard?openModal=true or /project/:id fall through to index.html and
// the app reads its own query parameters.
func (s *Server) mountStatic() {
	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		s.engine.NoRoute(notFoundJSON)
		return
	}

	info, err := os.Stat(s.staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", s.staticDir, "error", err)
		s.engine.NoRoute(notFoundJSON)
		return
	}

	assetsDir := filepath.Join(s.staticDir, "assets")
	if _, err := os.Stat(assetsDir); err == nil {
		s.engine.StaticFS("/assets", gin.Dir(assetsDir, false))
	}

	indexPath := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		s.logger.Warn("index.html not found", "path", indexPath, "error", err)
		s.engine.NoRoute(notFoundJSON)
		return
	}

	root, err := filepath.Abs(s.staticDir)
	if err != nil {
		root = s.staticDir
	}
	s.engine.NoRoute(func(c *gin.Context) {
		if isAPIPath(c.Request.URL.Path) || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			notFoundJSON(c)
			return
		}
		if file, ok := topLevelFile(root, c.Request.URL.Path); ok {
			c.File(file)
			return
		}
		c.File(indexPath)
	})
}

// topLevelFile resolves files like /favicon.ico or /robots.txt that live
// directly in the build directory.
func topLevelFile(root, urlPath string) (string, bool) {
	name := strings.TrimPrefix(urlPath, "/")
	if name == "" || strings.Contains(name, "/") || strings.HasPrefix(name, ".") {
		return "", false
	}
	candidate := filepath.Join(root, name)
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	return candidate, true
}

func isAPIPath(p string) bool {
	return strings.HasPrefix(p, "/api/") || p == "/api" || p == "/metrics"
}

func notFoundJSON(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
}
