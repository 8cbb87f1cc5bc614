// Package metrics exposes board statistics and HTTP traffic to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskboard/internal/status"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry    *prometheus.Registry
	handler     http.Handler
	projects    *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	requests    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		projects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taskboard_projects",
			Help: "Project counts per dashboard category from the last computed dashboard",
		}, []string{"category"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_task_transitions_total",
			Help: "Task card open actions by outcome",
		}, []string{"action"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
	}
	m.registry.MustRegister(m.projects, m.transitions, m.requests)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// ObserveStats publishes the latest dashboard counters.
func (m *Metrics) ObserveStats(s status.Stats) {
	m.projects.WithLabelValues("total").Set(float64(s.Total))
	m.projects.WithLabelValues("ongoing").Set(float64(s.Ongoing))
	m.projects.WithLabelValues("completed").Set(float64(s.Completed))
	m.projects.WithLabelValues("overdue").Set(float64(s.Overdue))
	m.projects.WithLabelValues("lts").Set(float64(s.LTS))
	m.projects.WithLabelValues("cancelled").Set(float64(s.Cancelled))
	m.projects.WithLabelValues("onHold").Set(float64(s.OnHold))
}

// ObserveOpen counts one task card open.
func (m *Metrics) ObserveOpen(action status.OpenAction) {
	m.transitions.WithLabelValues(string(action)).Inc()
}

// Middleware counts every request once it has been handled.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
