package provisionapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	provisionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provisor_provisioning_runs_total",
		Help: "Provisioning runs by provider and outcome.",
	}, []string{"provider", "outcome"})

	provisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provisor_provisioning_duration_seconds",
		Help:    "Wall time of provisioning runs, including the infra apply.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~17m
	}, []string{"provider"})
)
