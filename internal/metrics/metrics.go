// Package metrics exposes Prometheus counters for the queue and rating
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ranked_engine"

type Metrics struct {
	Registry *prometheus.Registry

	QueueJoins       *prometheus.CounterVec
	QueueLeaves      *prometheus.CounterVec
	MatchesFormed    *prometheus.CounterVec
	MatchesCompleted *prometheus.CounterVec
	MatchesCancelled *prometheus.CounterVec
	RatingFallbacks  prometheus.Counter
	TierChanges      *prometheus.CounterVec
}

// New builds the metric set on its own registry so independent instances
// never collide on registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		QueueJoins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_joins_total",
			Help:      "Accepted queue joins per title.",
		}, []string{"title"}),
		QueueLeaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_leaves_total",
			Help:      "Accepted queue leaves per title.",
		}, []string{"title"}),
		MatchesFormed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_formed_total",
			Help:      "Matches formed from a full queue per title.",
		}, []string{"title"}),
		MatchesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_completed_total",
			Help:      "Matches completed via result report per title.",
		}, []string{"title"}),
		MatchesCancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_cancelled_total",
			Help:      "Matches cancelled before completion per title.",
		}, []string{"title"}),
		RatingFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_fallbacks_total",
			Help:      "Rating computations that hit the fixed fallback due to malformed input.",
		}),
		TierChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_changes_total",
			Help:      "Tier label changes emitted per title.",
		}, []string{"title"}),
	}
}
