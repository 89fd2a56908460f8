// Package metrics exposes Prometheus collectors for the gateway, queue and
// workers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure stages used as the "stage" label of JobsFailed.
const (
	StageEnqueue    = "enqueue"
	StageDecode     = "decode"
	StageTranscribe = "transcribe"
	StageDeliver    = "deliver"
	StagePanic      = "panic"
)

// Metrics contains all Prometheus metrics of the service.
type Metrics struct {
	// Session metrics
	ActiveSessions prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// Job metrics
	JobsReceived  prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	ActiveWorkers prometheus.Gauge
	PayloadBytes  prometheus.Histogram

	// Engine metrics
	EngineWait       prometheus.Histogram
	EngineDuration   prometheus.Histogram
	FillersFiltered  prometheus.Counter
	DeliveredEmpty   prometheus.Counter
	TranscriptLength prometheus.Histogram
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stt_active_sessions",
			Help: "Current number of open client sessions",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_sessions_total",
			Help: "Total number of client sessions accepted",
		}),

		JobsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_jobs_received_total",
			Help: "Total number of audio payloads received",
		}),
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_jobs_completed_total",
			Help: "Total number of transcripts delivered",
		}),
		JobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stt_jobs_failed_total",
			Help: "Total number of jobs dropped, by failing stage",
		}, []string{"stage"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stt_queue_depth",
			Help: "Current number of jobs waiting for a worker",
		}),
		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stt_active_workers",
			Help: "Current number of jobs being processed",
		}),
		PayloadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_payload_bytes",
			Help:    "Size of inbound audio payloads",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
		}),

		EngineWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_engine_wait_seconds",
			Help:    "Time spent waiting for access to the speech engine",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		EngineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_engine_duration_seconds",
			Help:    "Time spent in speech engine calls, including the wait for access",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		FillersFiltered: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_filler_phrases_filtered_total",
			Help: "Total number of transcripts replaced by an empty string",
		}),
		DeliveredEmpty: factory.NewCounter(prometheus.CounterOpts{
			Name: "stt_empty_transcripts_total",
			Help: "Total number of empty transcripts delivered",
		}),
		TranscriptLength: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stt_transcript_runes",
			Help:    "Length of delivered transcripts in runes",
			Buckets: prometheus.ExponentialBuckets(8, 2, 8),
		}),
	}
}
