// Package metrics defines the Prometheus metrics exported by crawl runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vodcat"

// Item outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg prometheus.Gatherer

	ItemsTotal       *prometheus.CounterVec
	ProbesTotal      *prometheus.CounterVec
	ProbeDuration    prometheus.Histogram
	EntriesAdded     *prometheus.CounterVec
	DuplicatesTotal  *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	RunsTotal        *prometheus.CounterVec
	LastRunTimestamp *prometheus.GaugeVec
	CatalogEntries   *prometheus.GaugeVec
}

// New creates and registers the collectors on reg. A nil reg gets a private
// registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		ItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Item pages processed, by category and outcome.",
		}, []string{"category", "outcome"}),
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_probes_total",
			Help:      "Stream proxy probes, by result.",
		}, []string{"result"}),
		ProbeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_probe_duration_seconds",
			Help:      "Latency of stream proxy probes.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		EntriesAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_added_total",
			Help:      "Episodes and movies added to catalogs.",
		}, []string{"category", "kind"}),
		DuplicatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Candidates skipped because their CUID was already catalogued.",
		}, []string{"category"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a category run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"category"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Category runs, by status.",
		}, []string{"category", "status"}),
		LastRunTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run of a category finished.",
		}, []string{"category"}),
		CatalogEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      "Entries in a category catalog after the last run.",
		}, []string{"category", "kind"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Item counts one processed item page.
func (m *Metrics) Item(category, outcome string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(category, outcome).Inc()
}

// Probe records one stream probe. result is "ok" or an error class.
func (m *Metrics) Probe(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProbesTotal.WithLabelValues(result).Inc()
	m.ProbeDuration.Observe(d.Seconds())
}

// RunStats is what a finished category run reports.
type RunStats struct {
	Category   string
	Episodes   int
	Movies     int
	Duplicates int
	Status     string
	Duration   time.Duration
	// Catalog sizes after the run.
	TotalEpisodes int
	TotalMovies   int
}

// Run records a finished category run.
func (m *Metrics) Run(s RunStats) {
	if m == nil {
		return
	}
	m.EntriesAdded.WithLabelValues(s.Category, "episode").Add(float64(s.Episodes))
	m.EntriesAdded.WithLabelValues(s.Category, "movie").Add(float64(s.Movies))
	m.DuplicatesTotal.WithLabelValues(s.Category).Add(float64(s.Duplicates))
	m.RunDuration.WithLabelValues(s.Category).Observe(s.Duration.Seconds())
	m.RunsTotal.WithLabelValues(s.Category, s.Status).Inc()
	m.LastRunTimestamp.WithLabelValues(s.Category).SetToCurrentTime()
	m.CatalogEntries.WithLabelValues(s.Category, "episode").Set(float64(s.TotalEpisodes))
	m.CatalogEntries.WithLabelValues(s.Category, "movie").Set(float64(s.TotalMovies))
}
