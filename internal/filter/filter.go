// Package filter narrows an in-memory project list by search term and status.
package filter

import (
	"strings"

	"github.com/samber/lo"

	"taskboard/internal/models"
)

// Query is the combined filter. Both predicates must hold.
type Query struct {
	Term   string `form:"q" json:"q"`
	Status string `form:"status" json:"status"`
}

// Active reports whether the query narrows anything.
func (q Query) Active() bool {
	return strings.TrimSpace(q.Term) != "" || (q.Status != "" && q.Status != models.StatusAll)
}

// Apply runs both predicates, preserving input order.
func Apply(projects []models.Project, q Query) []models.Project {
	return ApplyStatus(ApplySearch(projects, q.Term), q.Status)
}

// ApplySearch keeps projects whose name, description or any member name
// contains term, ignoring case. A blank term returns the input unchanged.
func ApplySearch(projects []models.Project, term string) []models.Project {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return projects
	}
	return lo.Filter(projects, func(p models.Project, _ int) bool {
		return matches(p, needle)
	})
}

// ApplyStatus keeps projects whose status equals status exactly.
// "All" and the empty string return the input unchanged.
func ApplyStatus(projects []models.Project, status string) []models.Project {
	if status == "" || status == models.StatusAll {
		return projects
	}
	return lo.Filter(projects, func(p models.Project, _ int) bool {
		return string(p.ProjectStatus) == status
	})
}

func matches(p models.Project, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	return lo.SomeBy(p.Members, func(m models.Member) bool {
		return strings.Contains(strings.ToLower(m.Name), needle)
	})
}
