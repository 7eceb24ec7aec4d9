// Package metrics holds the planner's prometheus collectors. They register with
// the default registry, which the metrics router serves on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "planner"

var (
	QueuesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queues_built_total",
		Help:      "Queues built, by outcome (ok or overload).",
	}, []string{"outcome"})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "queue_build_duration_seconds",
		Help:      "Time to load inputs and build one queue.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	QueueLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "queue_length",
		Help:      "Number of tasks in built queues.",
		Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
	})

	WhatIfRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "what_if_requests_total",
		Help:      "What-if recomputations served.",
	})

	RefreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_runs_total",
		Help:      "Background queue refreshes, by trigger (tick, event, admin).",
	}, []string{"trigger"})

	TaskChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_changes_total",
		Help:      "Task writes, by change type.",
	}, []string{"change"})
)

// Outcome labels a built queue for QueuesBuilt.
func Outcome(overload bool) string {
	if overload {
		return "overload"
	}
	return "ok"
}
