// Package metrics exposes Prometheus metrics for the Stratum server.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Store defines the queries the collector runs on each scrape.
type Store interface {
	CountAssessmentsByStatus(ctx context.Context) (map[string]int64, error)
	CountRiskScenarios(ctx context.Context) (int64, error)
	CountProcesses(ctx context.Context) (int64, error)
	Health() map[string]any
}

// Collector implements prometheus.Collector over the database store. Scrape
// results are cached briefly so an aggressive scraper cannot hammer the
// database.
type Collector struct {
	store  Store
	logger zerolog.Logger

	assessmentsByStatus *prometheus.Desc
	riskScenariosTotal  *prometheus.Desc
	processesTotal      *prometheus.Desc
	dbConnections       *prometheus.Desc

	mu            sync.Mutex
	lastCollected time.Time
	cacheExpiry   time.Duration
	cached        *snapshot
}

type snapshot struct {
	assessments   map[string]int64
	riskScenarios int64
	processes     int64
}

// NewCollector creates a Collector.
func NewCollector(store Store, logger zerolog.Logger) *Collector {
	return &Collector{
		store:       store,
		logger:      logger.With().Str("component", "metrics").Logger(),
		cacheExpiry: 15 * time.Second,
		assessmentsByStatus: prometheus.NewDesc(
			"stratum_assessments_total",
			"Number of assessments by workflow status.",
			[]string{"status"}, nil,
		),
		riskScenariosTotal: prometheus.NewDesc(
			"stratum_risk_scenarios_total",
			"Number of risk scenarios in the library.",
			nil, nil,
		),
		processesTotal: prometheus.NewDesc(
			"stratum_processes_total",
			"Number of processes in the library.",
			nil, nil,
		),
		dbConnections: prometheus.NewDesc(
			"stratum_db_connections",
			"Database pool connections by state.",
			[]string{"state"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.assessmentsByStatus
	ch <- c.riskScenariosTotal
	ch <- c.processesTotal
	ch <- c.dbConnections
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.collectCached()
	if snap != nil {
		for status, n := range snap.assessments {
			ch <- prometheus.MustNewConstMetric(c.assessmentsByStatus, prometheus.GaugeValue, float64(n), status)
		}
		ch <- prometheus.MustNewConstMetric(c.riskScenariosTotal, prometheus.GaugeValue, float64(snap.riskScenarios))
		ch <- prometheus.MustNewConstMetric(c.processesTotal, prometheus.GaugeValue, float64(snap.processes))
	}

	health := c.store.Health()
	for _, state := range []string{"total_conns", "acquired_conns", "idle_conns"} {
		if v, ok := health[state].(int32); ok {
			ch <- prometheus.MustNewConstMetric(c.dbConnections, prometheus.GaugeValue, float64(v), state)
		}
	}
}

func (c *Collector) collectCached() *snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.lastCollected) < c.cacheExpiry {
		return c.cached
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap := &snapshot{}
	var err error
	if snap.assessments, err = c.store.CountAssessmentsByStatus(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to collect assessment metrics")
		return c.cached
	}
	if snap.riskScenarios, err = c.store.CountRiskScenarios(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to collect risk scenario metrics")
		return c.cached
	}
	if snap.processes, err = c.store.CountProcesses(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to collect process metrics")
		return c.cached
	}

	c.cached = snap
	c.lastCollected = time.Now()
	return snap
}

// Handler returns an http.Handler serving the metrics endpoint, registering
// the database collector alongside the standard Go runtime collectors.
func Handler(store Store, logger zerolog.Logger) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewCollector(store, logger),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
