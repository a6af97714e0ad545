// Package metrics exposes the Prometheus collectors for the story pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campus_stories"

const (
	ResultRecorded  = "recorded"
	ResultDuplicate = "duplicate"
	ResultRemoved   = "removed"
	ResultError     = "error"
	ResultChanged   = "changed"
	ResultNoop      = "noop"
)

var (
	// EngagementEvents counts event insert/delete outcomes by kind.
	EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engagement_events_total",
		Help:      "Engagement event writes by kind and result",
	}, []string{"kind", "result"})

	// CounterDrift counts cached counter updates that failed after the event
	// itself was written. Each one leaves the story counter behind its events
	// until the reconcile job runs.
	CounterDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "counter_drift_total",
		Help:      "Counter bumps that failed after a successful event write",
	}, []string{"kind"})

	DriftCorrected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "counter_drift_corrected_total",
		Help:      "Story counters rewritten by reconciliation",
	}, []string{"kind"})

	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moderation_decisions_total",
		Help:      "Moderation decisions by decision and result",
	}, []string{"decision", "result"})

	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconcile_duration_seconds",
		Help:      "Wall time of a full counter reconciliation pass",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)
