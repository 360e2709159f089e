package samplestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
)

var (
	leavesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_store_leaves",
		Help: "The number of leaves in the sample store.",
	})

	occupiedLeavesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_store_occupied_leaves",
		Help: "The number of leaves holding a sample.",
	})

	volumeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_store_volume_cubic_meters",
		Help: "The volume covered by the sample store.",
	})

	occupiedVolumeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_store_occupied_volume_cubic_meters",
		Help: "The volume of the leaves holding a sample.",
	})

	memoryGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sowilo_store_memory_bytes",
		Help: "The estimated memory footprint of the sample store.",
	})

	samplesSet = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sowilo_store_samples_total",
		Help: "The number of samples recorded.",
	})

	setErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_store_set_errors_total",
		Help: "The number of samples that could not be recorded.",
	}, []string{errTypeLabel})
)
