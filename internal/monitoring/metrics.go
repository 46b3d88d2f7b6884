// Package monitoring exposes Prometheus metrics and the health/status HTTP
// API for the agent framework.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/valpere/AgentScrapexter/internal/region"
)

const (
	namespace = "agentscrapexter"
	subsystem = "agents"
)

// Metrics holds the Prometheus collectors for task execution, region
// health, evasion, and output sinks.
type Metrics struct {
	tasksTotal       *prometheus.CounterVec
	taskDuration     *prometheus.HistogramVec
	tasksInFlight    *prometheus.GaugeVec
	regionRequests   *prometheus.CounterVec
	regionCooldowns  *prometheus.CounterVec
	sessionsCreated  *prometheus.CounterVec
	sessionsRecycled *prometheus.CounterVec
	evasionInjected  *prometheus.CounterVec
	linksDiscovered  *prometheus.CounterVec
	outputRecords    *prometheus.CounterVec
	outputErrors     *prometheus.CounterVec
	rateLimitWaits   *prometheus.HistogramVec
}

// NewMetrics registers the collector set with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_total",
				Help:      "Total number of executed agent tasks",
			},
			[]string{"agent", "region", "status"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "task_duration_seconds",
				Help:      "Agent task execution duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"agent", "region"},
		),
		tasksInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_in_flight",
				Help:      "Number of agent tasks currently executing",
			},
			[]string{"agent"},
		),
		regionRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "regions",
				Name:      "requests_total",
				Help:      "Total number of requests per region",
			},
			[]string{"region", "status"},
		),
		regionCooldowns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "regions",
				Name:      "cooldowns_total",
				Help:      "Total number of rate-limit cool-downs per region",
			},
			[]string{"region"},
		),
		sessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "regions",
				Name:      "sessions_created_total",
				Help:      "Total number of regional sessions constructed",
			},
			[]string{"region"},
		),
		sessionsRecycled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "regions",
				Name:      "sessions_recycled_total",
				Help:      "Total number of regional sessions retired",
			},
			[]string{"region", "reason"},
		),
		evasionInjected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "evasion",
				Name:      "injections_total",
				Help:      "Total number of evasion script injections",
			},
			[]string{"level", "status"},
		),
		linksDiscovered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "links_discovered_total",
				Help:      "Total number of links discovered",
			},
			[]string{"region"},
		),
		outputRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "output",
				Name:      "records_written_total",
				Help:      "Total number of records written per sink format",
			},
			[]string{"format"},
		),
		outputErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "output",
				Name:      "errors_total",
				Help:      "Total number of output sink errors",
			},
			[]string{"format"},
		),
		rateLimitWaits: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rate_limit_wait_seconds",
				Help:      "Time spent waiting on the rate limiter",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"agent"},
		),
	}
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the process-wide metrics set registered against the
// default Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// RecordTask records one task attempt outcome.
func (m *Metrics) RecordTask(agent, region string, success bool, duration time.Duration) {
	m.tasksTotal.WithLabelValues(agent, region, statusLabel(success)).Inc()
	m.taskDuration.WithLabelValues(agent, region).Observe(duration.Seconds())
	m.regionRequests.WithLabelValues(region, statusLabel(success)).Inc()
}

// TaskStarted marks a task as in flight.
func (m *Metrics) TaskStarted(agent string) {
	m.tasksInFlight.WithLabelValues(agent).Inc()
}

// TaskFinished marks a task as no longer in flight.
func (m *Metrics) TaskFinished(agent string) {
	m.tasksInFlight.WithLabelValues(agent).Dec()
}

// RecordCooldown counts a region entering its rate-limit cool-down.
func (m *Metrics) RecordCooldown(region string) {
	m.regionCooldowns.WithLabelValues(region).Inc()
}

// RecordSessionCreated counts a new regional session.
func (m *Metrics) RecordSessionCreated(region string) {
	m.sessionsCreated.WithLabelValues(region).Inc()
}

// RecordSessionRecycled counts a retired session with its reason.
func (m *Metrics) RecordSessionRecycled(region, reason string) {
	m.sessionsRecycled.WithLabelValues(region, reason).Inc()
}

// RecordInjection counts an evasion script injection attempt.
func (m *Metrics) RecordInjection(level string, success bool) {
	m.evasionInjected.WithLabelValues(level, statusLabel(success)).Inc()
}

// RecordLinks counts links discovered in a region.
func (m *Metrics) RecordLinks(region string, count int) {
	m.linksDiscovered.WithLabelValues(region).Add(float64(count))
}

// RecordOutput counts records written through a sink.
func (m *Metrics) RecordOutput(format string, records int) {
	m.outputRecords.WithLabelValues(format).Add(float64(records))
}

// RecordOutputError counts one sink failure.
func (m *Metrics) RecordOutputError(format string) {
	m.outputErrors.WithLabelValues(format).Inc()
}

// RecordRateLimitWait observes time spent blocked on the rate limiter.
func (m *Metrics) RecordRateLimitWait(agent string, wait time.Duration) {
	m.rateLimitWaits.WithLabelValues(agent).Observe(wait.Seconds())
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// regionObserver adapts Metrics to the region manager's lifecycle hook.
type regionObserver struct {
	m *Metrics
}

func (o regionObserver) SessionCreated(region string) {
	o.m.RecordSessionCreated(region)
}

func (o regionObserver) SessionRecycled(region, reason string) {
	o.m.RecordSessionRecycled(region, reason)
}

// RegionObserver returns a session lifecycle observer feeding these
// collectors, for use with region.WithObserver.
func (m *Metrics) RegionObserver() region.Observer {
	return regionObserver{m}
}
