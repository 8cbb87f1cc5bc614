// Package status derives read-only project aggregates and encodes the task
// card transition rules. Nothing in here touches storage.
package status

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"taskboard/internal/models"
)

// DefaultRecentLimit is the number of projects shown on the dashboard.
const DefaultRecentLimit = 5

// dueDateLayouts are tried in order when parsing a project due date.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// Stats holds the dashboard counters. Each counter is an independent
// predicate, so a project can be counted in more than one of them.
type Stats struct {
	Total     int `json:"total"`
	Ongoing   int `json:"ongoing"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
	LTS       int `json:"lts"`
	Cancelled int `json:"cancelled"`
	OnHold    int `json:"onHold"`
}

// ParseDueDate parses an ISO date or timestamp. Date-only values are UTC midnight.
func ParseDueDate(raw string) (time.Time, bool) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsOverdue reports whether the project is late at the given instant.
// An explicit "Lated" status always counts. Otherwise the due date must be a
// parseable date before now, not the LTS sentinel, on a project that has not
// succeeded. Unparseable dates are never overdue.
func IsOverdue(p models.Project, now time.Time) bool {
	if p.ProjectStatus == models.ProjectLated {
		return true
	}
	if p.ProjectDueDate == "" || p.ProjectDueDate == models.DueDateLTS || p.ProjectStatus == models.ProjectSuccess {
		return false
	}
	due, ok := ParseDueDate(p.ProjectDueDate)
	if !ok {
		return false
	}
	return due.Before(now)
}

// ComputeStats counts projects per dashboard category.
func ComputeStats(projects []models.Project, now time.Time) Stats {
	count := func(s models.ProjectStatus) int {
		return lo.CountBy(projects, func(p models.Project) bool { return p.ProjectStatus == s })
	}
	return Stats{
		Total:     len(projects),
		Ongoing:   count(models.ProjectInProgress),
		Completed: count(models.ProjectSuccess),
		Overdue:   lo.CountBy(projects, func(p models.Project) bool { return IsOverdue(p, now) }),
		LTS:       count(models.ProjectLTS),
		Cancelled: count(models.ProjectCancelled),
		OnHold:    count(models.ProjectOnHold),
	}
}

// RecentProjects returns up to n projects with the newest UpdatedAt first.
// Ties keep their input order. The input slice is not modified.
func RecentProjects(projects []models.Project, n int) []models.Project {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	sorted := slices.Clone(projects)
	slices.SortStableFunc(sorted, func(a, b models.Project) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
