// Package metrics exports Prometheus metrics for discovery runs and searches.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/discovery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadhunt_runs_total",
			Help: "Total number of discovery runs by final status and failure kind",
		},
		[]string{"status", "kind"},
	)

	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadhunt_runs_in_flight",
			Help: "Number of discovery runs currently executing",
		},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadhunt_run_duration_seconds",
			Help:    "Duration of discovery runs in seconds",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 120},
		},
		[]string{"status"},
	)

	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadhunt_stage_transitions_total",
			Help: "Total number of times runs entered each stage",
		},
		[]string{"stage"},
	)

	ItemsPerRun = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadhunt_run_items",
			Help:    "Number of queries, candidates, competitors and opportunities per run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"item"},
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadhunt_search_requests_total",
			Help: "Total number of search adapter calls by source and whether they returned results",
		},
		[]string{"source", "empty"},
	)

	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadhunt_search_results_total",
			Help: "Total number of results returned by each search source",
		},
		[]string{"source"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadhunt_search_duration_seconds",
			Help:    "Duration of search adapter calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"source"},
	)
)

// ObserveSearch records one adapter call. It has the shape of search.Observer.
func ObserveSearch(source core.Source, results int, elapsed time.Duration) {
	empty := "false"
	if results == 0 {
		empty = "true"
	}
	SearchRequestsTotal.WithLabelValues(string(source), empty).Inc()
	SearchResultsTotal.WithLabelValues(string(source)).Add(float64(results))
	SearchDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Monitor records discovery runs. It implements discovery.Monitor.
type Monitor struct {
	mu      sync.Mutex
	started map[string]time.Time
	now     func() time.Time
}

var _ discovery.Monitor = (*Monitor)(nil)

// NewMonitor creates a run monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		started: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *Monitor) RunStarted(runID string, _ discovery.RunRequest) {
	m.mu.Lock()
	m.started[runID] = m.now()
	m.mu.Unlock()
	RunsInFlight.Inc()
}

func (m *Monitor) StageEntered(_ string, stage discovery.Stage) {
	StageTransitions.WithLabelValues(string(stage)).Inc()
}

func (m *Monitor) QueriesGenerated(_ string, queries []string) {
	ItemsPerRun.WithLabelValues("queries").Observe(float64(len(queries)))
}

func (m *Monitor) ResultsAggregated(_ string, results int) {
	ItemsPerRun.WithLabelValues("candidates").Observe(float64(results))
}

func (m *Monitor) CompetitorsFound(_ string, competitors int) {
	ItemsPerRun.WithLabelValues("competitors").Observe(float64(competitors))
}

func (m *Monitor) ResultsRanked(_ string, ranked int) {
	ItemsPerRun.WithLabelValues("opportunities").Observe(float64(ranked))
}

func (m *Monitor) RunFinished(runID string, _ *discovery.Outcome, err *discovery.RunError) {
	m.mu.Lock()
	start, ok := m.started[runID]
	delete(m.started, runID)
	m.mu.Unlock()
	RunsInFlight.Dec()

	status, kind := string(discovery.StageDone), ""
	if err != nil {
		status, kind = string(discovery.StageFailed), string(err.Kind)
	}
	RunsTotal.WithLabelValues(status, kind).Inc()
	if ok {
		RunDuration.WithLabelValues(status).Observe(m.now().Sub(start).Seconds())
	}
}
