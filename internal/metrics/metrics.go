package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pacsim_generations_total",
		Help: "Total number of dataset generations, labelled by outcome.",
	}, []string{"outcome"})

	EventsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pacsim_events_generated_total",
		Help: "Total number of events generated, labelled by category.",
	}, []string{"category"})

	PatternEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pacsim_pattern_events_total",
		Help: "Total number of injected pattern events, labelled by pattern.",
	}, []string{"pattern"})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pacsim_quota_rejections_total",
		Help: "Total number of generation requests rejected by the storage budget.",
	})

	TemporalFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pacsim_temporal_fallbacks_total",
		Help: "Timestamps returned unweighted after exhausting the rejection cap.",
	})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pacsim_generation_duration_ms",
		Help:    "Dataset generation latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pacsim_jobs_enqueued_total",
		Help: "Total number of generation jobs placed on the queue.",
	})

	JobsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pacsim_jobs_dropped_total",
		Help: "Total number of generation jobs rejected due to a full queue.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pacsim_queue_utilization_ratio",
		Help: "Current job queue utilization (0–1).",
	})

	StoredBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pacsim_stored_bytes",
		Help: "Encoded size of the persisted dataset.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pacsim_events_published_total",
		Help: "Total number of events sent to Kafka, labelled by status.",
	}, []string{"status"})
)
