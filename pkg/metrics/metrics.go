package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	ETARequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "busline_eta_requests_total",
		Help: "Arrival estimate requests by outcome.",
	}, []string{"outcome"}) // outcome label: ok|not_found|error

	ETADuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "busline_eta_duration_seconds",
		Help:    "Time taken to compute the arrival estimates for a stop.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	ETAEstimates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "busline_eta_estimates",
		Help:    "Number of vehicles returned per arrival estimate request.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	TopologyRoutes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "busline_topology_routes",
		Help: "Routes in the current topology snapshot.",
	})

	TopologyRefreshErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "busline_topology_refresh_errors_total",
		Help: "Failed topology rebuilds.",
	})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "busline_job_runs_total",
		Help: "Ingestion job runs by job and status.",
	}, []string{"job", "status"}) // status label: success|failure|skipped

	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "busline_job_duration_seconds",
		Help:    "Ingestion job run time.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"job"})

	RecordsImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "busline_records_imported_total",
		Help: "Upstream records written by kind.",
	}, []string{"kind"})

	RecordsInvalid = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "busline_records_invalid_total",
		Help: "Upstream records skipped by validation, by kind.",
	}, []string{"kind"})

	PositionsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "busline_positions_written_total",
		Help: "Vehicle positions written by the queue consumers.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ETARequests, ETADuration, ETAEstimates,
		TopologyRoutes, TopologyRefreshErrors,
		JobRuns, JobDuration,
		RecordsImported, RecordsInvalid,
		PositionsWritten,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
