package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	componentExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphquill_component_executions_total",
			Help: "Total number of component executions by outcome",
		},
		[]string{"status"},
	)

	executionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphquill_execution_duration_seconds",
			Help:    "Template execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
