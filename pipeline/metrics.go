package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
	resultLabel  = "result"
	stageLabel   = "stage"
	kindLabel    = "kind"

	resultProjected = "projected"
	resultSkipped   = "skipped"
	resultFailed    = "failed"

	stagePoll    = "poll"
	stageProject = "project"
	stageStore   = "store"
	stagePublish = "publish"
)

var (
	cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_pipeline_cycles_total",
		Help: "The number of frame loop cycles by result.",
	}, []string{resultLabel})

	cycleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_pipeline_errors_total",
		Help: "The errors that occured during a frame loop cycle.",
	}, []string{errTypeLabel})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sowilo_pipeline_stage_latency_seconds",
		Help:    "The time spent in each stage of a frame loop cycle.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{stageLabel})

	vertices = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sowilo_pipeline_vertices",
		Help: "The number of vertices handled by the last projection.",
	}, []string{kindLabel})

	rasterAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_pipeline_raster_age_seconds",
		Help: "The age of the raster used by the last projection.",
	})
)
