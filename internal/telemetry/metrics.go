package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Метрики движка.
var (
	// JobsStarted — количество запущенных jobs.
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conduit_jobs_started_total",
		Help: "Total number of jobs started.",
	})

	// JobsFinished — завершённые jobs по статусу.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_jobs_finished_total",
		Help: "Total number of finished jobs by terminal status.",
	}, []string{"status"})

	// ActiveJobs — jobs в обработке прямо сейчас.
	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conduit_active_jobs",
		Help: "Number of jobs currently being executed.",
	})

	// NodesExecuted — выполненные узлы по типу и исходу.
	NodesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_nodes_executed_total",
		Help: "Total number of node executions by type and outcome.",
	}, []string{"type", "outcome"})

	// NodeDuration — длительность выполнения узлов по типу.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conduit_node_duration_seconds",
		Help:    "Node execution duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"type"})

	// NodeRetries — повторы узлов после transient ошибок.
	NodeRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conduit_node_retries_total",
		Help: "Total number of node retry attempts.",
	})

	// EventPublishErrors — неудачные публикации событий.
	// События fire-and-forget, поэтому ошибка видна только здесь и в логах.
	EventPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conduit_event_publish_errors_total",
		Help: "Total number of failed event publications.",
	})

	// ScheduledJobs — jobs, созданные scheduler'ом.
	ScheduledJobs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conduit_scheduled_jobs_total",
		Help: "Total number of jobs created by the scheduler.",
	})
)

// MetricsHandler возвращает HTTP handler для /metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
